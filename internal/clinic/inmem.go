package clinic

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemRepository is a mutex-guarded in-memory Repository backing the unit
// tests. Semantics mirror PgRepository, including the conditional status
// transitions.
type MemRepository struct {
	mu           sync.RWMutex
	patients     map[uuid.UUID]*Patient
	doctors      map[uuid.UUID]*Doctor
	appointments map[uuid.UUID]*Appointment
	tokens       map[uuid.UUID]*Token
}

func NewMemRepository() *MemRepository {
	return &MemRepository{
		patients:     make(map[uuid.UUID]*Patient),
		doctors:      make(map[uuid.UUID]*Doctor),
		appointments: make(map[uuid.UUID]*Appointment),
		tokens:       make(map[uuid.UUID]*Token),
	}
}

func (r *MemRepository) PutPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = &p
}

func (r *MemRepository) PutDoctor(d Doctor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doctors[d.ID] = &d
}

func (r *MemRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *MemRepository) ListActiveDoctors(_ context.Context) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Doctor
	for _, d := range r.doctors {
		if d.Active {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (r *MemRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *MemRepository) FindAppointmentAt(_ context.Context, doctorID uuid.UUID, date, slot string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Date == date && a.Time == slot && a.Status != AppointmentCancelled {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *MemRepository) CreateAppointment(_ context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *appt
	r.appointments[appt.ID] = &cp
	return nil
}

func (r *MemRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (r *MemRepository) CountAppointments(_ context.Context, doctorID uuid.UUID, date string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Date == date && a.Status != AppointmentCancelled {
			n++
		}
	}
	return n, nil
}

func (r *MemRepository) GetTokenByID(_ context.Context, id uuid.UUID) (*Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[id]
	if !ok {
		return nil, ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *MemRepository) MaxTokenNumber(_ context.Context, doctorID uuid.UUID, date string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	max := 0
	for _, t := range r.tokens {
		if t.DoctorID == doctorID && t.Date == date && t.Number > max {
			max = t.Number
		}
	}
	return max, nil
}

func (r *MemRepository) CountActiveTokens(_ context.Context, doctorID uuid.UUID, date string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, t := range r.tokens {
		if t.DoctorID == doctorID && t.Date == date && t.Status != TokenCancelled {
			n++
		}
	}
	return n, nil
}

func (r *MemRepository) CreateToken(_ context.Context, t *Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tokens[t.ID] = &cp
	return nil
}

func (r *MemRepository) listTokens(match func(*Token) bool) []Token {
	var result []Token
	for _, t := range r.tokens {
		if match(t) {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Number < result[j].Number
	})
	return result
}

func (r *MemRepository) ListTokens(_ context.Context, doctorID uuid.UUID, date string) ([]Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listTokens(func(t *Token) bool {
		return t.DoctorID == doctorID && t.Date == date
	}), nil
}

func (r *MemRepository) ListTokensByStatus(_ context.Context, doctorID uuid.UUID, date string, status TokenStatus) ([]Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listTokens(func(t *Token) bool {
		return t.DoctorID == doctorID && t.Date == date && t.Status == status
	}), nil
}

func (r *MemRepository) GetCalledToken(_ context.Context, doctorID uuid.UUID, date string) (*Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tokens {
		if t.DoctorID == doctorID && t.Date == date && t.Status == TokenCalled {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrTokenNotFound
}

func (r *MemRepository) ListPatientTokens(_ context.Context, patientID uuid.UUID, status *TokenStatus) ([]Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := r.listTokens(func(t *Token) bool {
		if t.PatientID != patientID {
			return false
		}
		return status == nil || t.Status == *status
	})
	// newest first
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

func (r *MemRepository) transitionToken(id uuid.UUID, from, to TokenStatus, update func(*Token)) (*Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok || t.Status != from {
		return nil, ErrTokenNotFound
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	if update != nil {
		update(t)
	}
	cp := *t
	return &cp, nil
}

func (r *MemRepository) MarkTokenCalled(_ context.Context, id uuid.UUID) (*Token, error) {
	return r.transitionToken(id, TokenWaiting, TokenCalled, func(t *Token) {
		now := time.Now()
		t.CalledAt = &now
	})
}

func (r *MemRepository) MarkTokenCompleted(_ context.Context, id uuid.UUID, actualWaitMins int) (*Token, error) {
	return r.transitionToken(id, TokenCalled, TokenCompleted, func(t *Token) {
		now := time.Now()
		t.CompletedAt = &now
		t.ActualWait = &actualWaitMins
	})
}

func (r *MemRepository) MarkTokenCancelled(_ context.Context, id uuid.UUID) (*Token, error) {
	return r.transitionToken(id, TokenWaiting, TokenCancelled, nil)
}

func (r *MemRepository) UpdateTokenEstimate(_ context.Context, id uuid.UUID, mins int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok {
		return ErrTokenNotFound
	}
	t.EstimatedWait = mins
	t.UpdatedAt = time.Now()
	return nil
}

func (r *MemRepository) RecentActualWaits(_ context.Context, doctorID uuid.UUID, limit int) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var completed []*Token
	for _, t := range r.tokens {
		if t.DoctorID == doctorID && t.Status == TokenCompleted && t.ActualWait != nil {
			completed = append(completed, t)
		}
	}
	sort.Slice(completed, func(i, j int) bool {
		ti, tj := completed[i].CompletedAt, completed[j].CompletedAt
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})
	if len(completed) > limit {
		completed = completed[:limit]
	}
	waits := make([]int, 0, len(completed))
	for _, t := range completed {
		waits = append(waits, *t.ActualWait)
	}
	return waits, nil
}
