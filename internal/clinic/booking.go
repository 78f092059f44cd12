package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BookingRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      string // YYYY-MM-DD
	Time      string // HH:MM
	Type      ConsultationType
	Symptoms  *string
}

// BookAppointment reserves a (doctor, date, time) slot for a patient. The
// conflict check and the insert run as one critical section under the slot
// lock, so two concurrent requests for the same slot yield exactly one
// appointment and one ErrSlotTaken.
func (s *Service) BookAppointment(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if err := validDate(req.Date); err != nil {
		return nil, err
	}
	if err := validSlotTime(req.Time); err != nil {
		return nil, err
	}
	if req.Type == "" {
		req.Type = ConsultInPerson
	}

	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	doctor, err := s.activeDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	if !doctor.AvailableOn(req.Date) {
		return nil, ErrDoctorUnavailable
	}
	if doctor.DayStart != "" && req.Time < doctor.DayStart {
		return nil, ErrDoctorUnavailable
	}
	if doctor.DayEnd != "" && req.Time > doctor.DayEnd {
		return nil, ErrDoctorUnavailable
	}

	slotStart, err := time.Parse(DateLayout+" "+TimeLayout, req.Date+" "+req.Time)
	if err != nil {
		return nil, fmt.Errorf("parse slot: %w", err)
	}
	if !slotStart.After(s.now()) {
		return nil, ErrPastAppointment
	}

	var created *Appointment

	err = s.locker.WithLock(ctx, slotKey(req.DoctorID, req.Date, req.Time), func(lockCtx context.Context) error {
		existing, err := s.repo.FindAppointmentAt(lockCtx, req.DoctorID, req.Date, req.Time)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check slot: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		now := s.now()
		appt := &Appointment{
			ID:        uuid.New(),
			PatientID: req.PatientID,
			DoctorID:  req.DoctorID,
			Date:      req.Date,
			Time:      req.Time,
			Status:    AppointmentScheduled,
			Type:      req.Type,
			Symptoms:  req.Symptoms,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.CreateAppointment(lockCtx, appt); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})
	if err != nil {
		return nil, mapLockErr(err)
	}

	return created, nil
}

// GetAppointment retrieves an appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// StartAppointment moves a scheduled appointment to in-progress.
func (s *Service) StartAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transitionAppointment(ctx, id, AppointmentInProgress, AppointmentScheduled)
}

// CompleteAppointment closes out an appointment. Valid from scheduled or
// in-progress; completed and cancelled appointments never change again.
func (s *Service) CompleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transitionAppointment(ctx, id, AppointmentCompleted, AppointmentScheduled, AppointmentInProgress)
}

// CancelAppointment frees the slot. Valid from scheduled or in-progress.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transitionAppointment(ctx, id, AppointmentCancelled, AppointmentScheduled, AppointmentInProgress)
}

func (s *Service) transitionAppointment(ctx context.Context, id uuid.UUID, to AppointmentStatus, validFrom ...AppointmentStatus) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, from := range validFrom {
		if appt.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// status changed underneath us
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	return updated, nil
}
