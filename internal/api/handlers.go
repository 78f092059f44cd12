package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quickmed/opd-scheduling/internal/clinic"
)

// busyRetries bounds how often a handler re-attempts an operation that lost
// the lock race before surfacing 409 busy to the client.
const busyRetries = 3

func retryBusy[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var (
		v   T
		err error
	)
	for attempt := 0; attempt < busyRetries; attempt++ {
		v, err = fn()
		if !errors.Is(err, clinic.ErrBusy) {
			return v, err
		}
		select {
		case <-ctx.Done():
			return v, err
		case <-time.After(time.Duration(attempt+1) * 25 * time.Millisecond):
		}
	}
	return v, err
}

func bookAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		appt, err := retryBusy(r.Context(), func() (*clinic.Appointment, error) {
			return svc.BookAppointment(r.Context(), clinic.BookingRequest{
				PatientID: patientID,
				DoctorID:  doctorID,
				Date:      req.Date,
				Time:      req.Time,
				Type:      clinic.ConsultationType(req.Type),
				Symptoms:  req.Symptoms,
			})
		})
		if err != nil {
			handleClinicError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "invalid_appointment_id")
		if !ok {
			return
		}
		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleClinicError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return appointmentTransitionHandler(svc.CancelAppointment)
}

func completeAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return appointmentTransitionHandler(svc.CompleteAppointment)
}

func startAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return appointmentTransitionHandler(svc.StartAppointment)
}

func appointmentTransitionHandler(op func(ctx context.Context, id uuid.UUID) (*clinic.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "invalid_appointment_id")
		if !ok {
			return
		}
		appt, err := op(r.Context(), id)
		if err != nil {
			handleClinicError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func recommendHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RecommendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		recs, err := svc.RecommendDoctors(r.Context(), req.Symptoms, req.PreferredDate, req.Specialization, req.Limit)
		if err != nil {
			handleClinicError(w, err)
			return
		}

		resp := RecommendResponse{Doctors: make([]RecommendedDoctor, 0, len(recs))}
		for _, rec := range recs {
			resp.Doctors = append(resp.Doctors, RecommendedDoctor{
				DoctorID:          rec.Doctor.ID,
				Name:              rec.Doctor.FullName(),
				Specialization:    rec.Doctor.Specialization,
				Department:        rec.Doctor.Department,
				Score:             rec.Score,
				SpecializationFit: rec.SpecializationScore,
				Availability:      rec.AvailabilityScore,
				Experience:        rec.ExperienceScore,
				RemainingCapacity: rec.RemainingCapacity,
				Reasoning:         rec.Reasoning,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request, errCode string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errCode, "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func handleClinicError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinic.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, clinic.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, clinic.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, clinic.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "token_not_found", err.Error())
	case errors.Is(err, clinic.ErrDoctorInactive):
		writeError(w, http.StatusConflict, "doctor_inactive", err.Error())
	case errors.Is(err, clinic.ErrDoctorUnavailable):
		writeError(w, http.StatusConflict, "doctor_unavailable", err.Error())
	case errors.Is(err, clinic.ErrPastAppointment):
		writeError(w, http.StatusUnprocessableEntity, "past_appointment", err.Error())
	case errors.Is(err, clinic.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, clinic.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "capacity_exceeded", err.Error())
	case errors.Is(err, clinic.ErrTokenActive):
		writeError(w, http.StatusConflict, "token_already_active", err.Error())
	case errors.Is(err, clinic.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, clinic.ErrQueueEmpty):
		writeError(w, http.StatusNotFound, "queue_empty", err.Error())
	case errors.Is(err, clinic.ErrAppointmentMismatch):
		writeError(w, http.StatusUnprocessableEntity, "appointment_mismatch", err.Error())
	case errors.Is(err, clinic.ErrInvalidDate), errors.Is(err, clinic.ErrInvalidTime):
		writeError(w, http.StatusBadRequest, "invalid_date_time", err.Error())
	case errors.Is(err, clinic.ErrBusy):
		writeError(w, http.StatusConflict, "busy", "queue is busy, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
