package clinic

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type TokenRequest struct {
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	Date          string // YYYY-MM-DD
	AppointmentID *uuid.UUID
}

// IssueToken assigns the next queue number for (doctor, date). Numbering and
// the capacity check run under the queue lock, so concurrent callers can
// never receive the same number and the daily cap is exact.
func (s *Service) IssueToken(ctx context.Context, req TokenRequest) (*Token, error) {
	if err := validDate(req.Date); err != nil {
		return nil, err
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

	if req.AppointmentID != nil {
		appt, err := s.repo.GetAppointmentByID(ctx, *req.AppointmentID)
		if err != nil {
			return nil, err
		}
		if appt.PatientID != req.PatientID || appt.DoctorID != req.DoctorID {
			return nil, ErrAppointmentMismatch
		}
	}

	var issued *Token

	err = s.locker.WithLock(ctx, queueKey(req.DoctorID, req.Date), func(lockCtx context.Context) error {
		active, err := s.repo.CountActiveTokens(lockCtx, req.DoctorID, req.Date)
		if err != nil {
			return fmt.Errorf("count tokens: %w", err)
		}
		if doctor.MaxPatientsPerDay > 0 && active >= doctor.MaxPatientsPerDay {
			return ErrCapacityExceeded
		}

		maxNumber, err := s.repo.MaxTokenNumber(lockCtx, req.DoctorID, req.Date)
		if err != nil {
			return fmt.Errorf("max token number: %w", err)
		}

		waiting, err := s.repo.ListTokensByStatus(lockCtx, req.DoctorID, req.Date, TokenWaiting)
		if err != nil {
			return fmt.Errorf("list waiting tokens: %w", err)
		}
		avg, err := s.averageServiceMins(lockCtx, req.DoctorID)
		if err != nil {
			return err
		}

		now := s.now()
		t := &Token{
			ID:            uuid.New(),
			PatientID:     req.PatientID,
			DoctorID:      req.DoctorID,
			Date:          req.Date,
			Number:        maxNumber + 1,
			Status:        TokenWaiting,
			EstimatedWait: s.est.Estimate(len(waiting), avg),
			AppointmentID: req.AppointmentID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.CreateToken(lockCtx, t); err != nil {
			return fmt.Errorf("create token: %w", err)
		}

		issued = t
		return nil
	})
	if err != nil {
		return nil, mapLockErr(err)
	}

	return issued, nil
}

// CallNextToken moves the lowest-numbered Waiting token to Called. At most
// one token may be Called per (doctor, date); the previous one must be
// completed or cancelled first.
func (s *Service) CallNextToken(ctx context.Context, doctorID uuid.UUID, date string) (*Token, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}

	var called *Token

	err := s.locker.WithLock(ctx, queueKey(doctorID, date), func(lockCtx context.Context) error {
		active, err := s.repo.GetCalledToken(lockCtx, doctorID, date)
		if err != nil && !errors.Is(err, ErrTokenNotFound) {
			return fmt.Errorf("check called token: %w", err)
		}
		if active != nil {
			return ErrTokenActive
		}

		waiting, err := s.repo.ListTokensByStatus(lockCtx, doctorID, date, TokenWaiting)
		if err != nil {
			return fmt.Errorf("list waiting tokens: %w", err)
		}
		if len(waiting) == 0 {
			return ErrQueueEmpty
		}

		t, err := s.repo.MarkTokenCalled(lockCtx, waiting[0].ID)
		if err != nil {
			return fmt.Errorf("call token: %w", err)
		}

		called = t
		return s.refreshEstimates(lockCtx, doctorID, date)
	})
	if err != nil {
		return nil, mapLockErr(err)
	}

	return called, nil
}

// CallToken calls one specific waiting token, subject to the same
// single-Called invariant as CallNextToken.
func (s *Service) CallToken(ctx context.Context, tokenID uuid.UUID) (*Token, error) {
	t, err := s.repo.GetTokenByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if t.Status != TokenWaiting {
		return nil, ErrInvalidTransition
	}

	var called *Token

	err = s.locker.WithLock(ctx, queueKey(t.DoctorID, t.Date), func(lockCtx context.Context) error {
		active, err := s.repo.GetCalledToken(lockCtx, t.DoctorID, t.Date)
		if err != nil && !errors.Is(err, ErrTokenNotFound) {
			return fmt.Errorf("check called token: %w", err)
		}
		if active != nil {
			return ErrTokenActive
		}

		updated, err := s.repo.MarkTokenCalled(lockCtx, tokenID)
		if err != nil {
			if errors.Is(err, ErrTokenNotFound) {
				return ErrInvalidTransition
			}
			return fmt.Errorf("call token: %w", err)
		}

		called = updated
		return s.refreshEstimates(lockCtx, t.DoctorID, t.Date)
	})
	if err != nil {
		return nil, mapLockErr(err)
	}

	return called, nil
}

// CompleteToken closes a Called token and records the actual wait that feeds
// the rolling average. A linked scheduled appointment is completed alongside.
func (s *Service) CompleteToken(ctx context.Context, tokenID uuid.UUID, actualWaitMins int) (*Token, error) {
	t, err := s.repo.GetTokenByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if t.Status != TokenCalled {
		return nil, ErrInvalidTransition
	}
	if actualWaitMins < 0 {
		actualWaitMins = 0
	}

	var completed *Token

	err = s.locker.WithLock(ctx, queueKey(t.DoctorID, t.Date), func(lockCtx context.Context) error {
		updated, err := s.repo.MarkTokenCompleted(lockCtx, tokenID, actualWaitMins)
		if err != nil {
			if errors.Is(err, ErrTokenNotFound) {
				return ErrInvalidTransition
			}
			return fmt.Errorf("complete token: %w", err)
		}
		completed = updated

		if t.AppointmentID != nil {
			_, err := s.repo.UpdateAppointmentStatus(lockCtx, *t.AppointmentID, AppointmentScheduled, AppointmentCompleted)
			if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
				return fmt.Errorf("complete linked appointment: %w", err)
			}
		}

		return s.refreshEstimates(lockCtx, t.DoctorID, t.Date)
	})
	if err != nil {
		return nil, mapLockErr(err)
	}

	return completed, nil
}

// CancelToken removes a Waiting token from the queue. Numbers are never
// reassigned; later tokens keep theirs and only queue depth shrinks.
// Cancelling a token that is not Waiting (including one already cancelled)
// is ErrInvalidTransition.
func (s *Service) CancelToken(ctx context.Context, tokenID uuid.UUID) (*Token, error) {
	t, err := s.repo.GetTokenByID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if t.Status != TokenWaiting {
		return nil, ErrInvalidTransition
	}

	var cancelled *Token

	err = s.locker.WithLock(ctx, queueKey(t.DoctorID, t.Date), func(lockCtx context.Context) error {
		updated, err := s.repo.MarkTokenCancelled(lockCtx, tokenID)
		if err != nil {
			if errors.Is(err, ErrTokenNotFound) {
				return ErrInvalidTransition
			}
			return fmt.Errorf("cancel token: %w", err)
		}
		cancelled = updated
		return s.refreshEstimates(lockCtx, t.DoctorID, t.Date)
	})
	if err != nil {
		return nil, mapLockErr(err)
	}

	return cancelled, nil
}

// GetToken retrieves a token by ID.
func (s *Service) GetToken(ctx context.Context, id uuid.UUID) (*Token, error) {
	return s.repo.GetTokenByID(ctx, id)
}

// QueueSnapshot builds the display-board view of a doctor's daily queue.
func (s *Service) QueueSnapshot(ctx context.Context, doctorID uuid.UUID, date string) (*QueueSnapshot, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	tokens, err := s.repo.ListTokens(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}

	snap := &QueueSnapshot{
		DoctorID: doctorID,
		Date:     date,
	}

	var totalWait, completedWithWait int
	for i := range tokens {
		t := tokens[i]
		switch t.Status {
		case TokenWaiting:
			snap.Waiting = append(snap.Waiting, t)
			if snap.Next == nil {
				next := t
				snap.Next = &next
			}
		case TokenCalled:
			called := t
			snap.Called = &called
		case TokenCompleted:
			snap.CompletedCount++
			if t.ActualWait != nil {
				totalWait += *t.ActualWait
				completedWithWait++
			}
		case TokenCancelled:
			snap.CancelledCount++
		}
	}
	snap.WaitingCount = len(snap.Waiting)
	if completedWithWait > 0 {
		snap.AverageWait = totalWait / completedWithWait
	}

	return snap, nil
}

// DailySummary aggregates a doctor's token activity for a date.
func (s *Service) DailySummary(ctx context.Context, doctorID uuid.UUID, date string) (*DailySummary, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	tokens, err := s.repo.ListTokens(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}

	sum := &DailySummary{
		DoctorID:    doctorID,
		Date:        date,
		TotalTokens: len(tokens),
	}

	var totalWait, completedWithWait int
	for _, t := range tokens {
		switch t.Status {
		case TokenWaiting:
			sum.Waiting++
		case TokenCalled:
			sum.Called++
		case TokenCompleted:
			sum.Completed++
			if t.ActualWait != nil {
				totalWait += *t.ActualWait
				completedWithWait++
			}
		case TokenCancelled:
			sum.Cancelled++
		}
	}
	if completedWithWait > 0 {
		sum.AverageWait = totalWait / completedWithWait
	}
	if sum.TotalTokens > 0 {
		sum.CompletionRate = float64(sum.Completed) / float64(sum.TotalTokens) * 100
	}

	return sum, nil
}

// PatientTokens lists a patient's tokens, optionally filtered by status.
func (s *Service) PatientTokens(ctx context.Context, patientID uuid.UUID, status *TokenStatus) ([]Token, error) {
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListPatientTokens(ctx, patientID, status)
}
