package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quickmed/opd-scheduling/internal/config"
	redisclient "github.com/quickmed/opd-scheduling/internal/redis"
)

var (
	ErrSlotTaken           = errors.New("doctor already has an appointment at this time")
	ErrDoctorInactive      = errors.New("doctor is not active")
	ErrDoctorUnavailable   = errors.New("doctor is not available at the requested time")
	ErrPastAppointment     = errors.New("appointment must be in the future")
	ErrCapacityExceeded    = errors.New("doctor's daily patient limit reached")
	ErrTokenActive         = errors.New("another token is already called for this doctor")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrQueueEmpty          = errors.New("no waiting tokens in queue")
	ErrAppointmentMismatch = errors.New("appointment does not belong to the given patient and doctor")
	ErrBusy                = errors.New("queue is busy, please retry")
	ErrInvalidDate         = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidTime         = errors.New("invalid time, expected HH:MM")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	est    *Estimator
	scorer *Scorer
	window int
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config) *Service {
	est := NewEstimator(EstimatorConfig{
		DefaultServiceMins: cfg.DefaultServiceMins,
		RollingWindow:      cfg.RollingWindow,
		BufferMins:         cfg.EstimateBufferMins,
	})
	scorer := NewScorer(ScorerWeights{
		Specialization: cfg.WeightSpecialization,
		Availability:   cfg.WeightAvailability,
		Experience:     cfg.WeightExperience,
	})
	window := cfg.RollingWindow
	if window <= 0 {
		window = 20
	}
	return &Service{
		repo:   repo,
		locker: locker,
		est:    est,
		scorer: scorer,
		window: window,
		now:    time.Now,
	}
}

// queueKey guards the per-(doctor, date) token sequence and Called slot.
func queueKey(doctorID uuid.UUID, date string) string {
	return fmt.Sprintf("queue:%s:%s", doctorID, date)
}

// slotKey guards check-then-insert for one (doctor, date, time) booking slot.
func slotKey(doctorID uuid.UUID, date, slot string) string {
	return fmt.Sprintf("slot:%s:%s:%s", doctorID, date, slot)
}

func mapLockErr(err error) error {
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrBusy
	}
	return err
}

func validDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

func validSlotTime(slot string) error {
	if _, err := time.Parse(TimeLayout, slot); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTime, slot)
	}
	return nil
}

func (s *Service) activeDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doctor.Active {
		return nil, ErrDoctorInactive
	}
	return doctor, nil
}

// averageServiceMins derives the rolling average consultation time for a
// doctor from their recent completions.
func (s *Service) averageServiceMins(ctx context.Context, doctorID uuid.UUID) (int, error) {
	waits, err := s.repo.RecentActualWaits(ctx, doctorID, s.window)
	if err != nil {
		return 0, fmt.Errorf("load recent waits: %w", err)
	}
	return s.est.AverageServiceMins(waits), nil
}

// refreshEstimates recomputes the estimated wait of every Waiting token for
// (doctor, date) as position x average. Callers must hold the queue lock if
// they require the values to be exact at a point in time; the worker calls it
// unlocked and tolerates brief staleness.
func (s *Service) refreshEstimates(ctx context.Context, doctorID uuid.UUID, date string) error {
	avg, err := s.averageServiceMins(ctx, doctorID)
	if err != nil {
		return err
	}

	waiting, err := s.repo.ListTokensByStatus(ctx, doctorID, date, TokenWaiting)
	if err != nil {
		return fmt.Errorf("list waiting tokens: %w", err)
	}

	for i, t := range waiting {
		estimate := s.est.Estimate(i, avg)
		if estimate == t.EstimatedWait {
			continue
		}
		if err := s.repo.UpdateTokenEstimate(ctx, t.ID, estimate); err != nil {
			return fmt.Errorf("update estimate for token %s: %w", t.ID, err)
		}
	}
	return nil
}

// RefreshEstimates recomputes wait estimates for one doctor's daily queue.
func (s *Service) RefreshEstimates(ctx context.Context, doctorID uuid.UUID, date string) error {
	if err := validDate(date); err != nil {
		return err
	}
	return s.refreshEstimates(ctx, doctorID, date)
}

// RefreshAllEstimates recomputes estimates for every active doctor's queue on
// the given date. Used by the refresh worker.
func (s *Service) RefreshAllEstimates(ctx context.Context, date string) error {
	if err := validDate(date); err != nil {
		return err
	}
	doctors, err := s.repo.ListActiveDoctors(ctx)
	if err != nil {
		return fmt.Errorf("list doctors: %w", err)
	}
	for _, doc := range doctors {
		if err := s.refreshEstimates(ctx, doc.ID, date); err != nil {
			return err
		}
	}
	return nil
}

// RecommendDoctors ranks active doctors for a symptom/preference query. The
// result is ephemeral and fully determined by its inputs.
func (s *Service) RecommendDoctors(ctx context.Context, symptoms, date, preferredSpecialization string, limit int) ([]Recommendation, error) {
	if err := validDate(date); err != nil {
		return nil, err
	}

	doctors, err := s.repo.ListActiveDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}

	booked := make(map[uuid.UUID]int, len(doctors))
	for _, doc := range doctors {
		n, err := s.repo.CountAppointments(ctx, doc.ID, date)
		if err != nil {
			return nil, fmt.Errorf("count appointments for %s: %w", doc.ID, err)
		}
		booked[doc.ID] = n
	}

	return s.scorer.Recommend(doctors, booked, date, symptoms, preferredSpecialization, limit), nil
}
