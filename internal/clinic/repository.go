package clinic

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrTokenNotFound       = errors.New("token not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListActiveDoctors(ctx context.Context) ([]Doctor, error)

	// Appointments
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// FindAppointmentAt returns the non-cancelled appointment occupying the
	// (doctor, date, time) slot, or ErrAppointmentNotFound.
	FindAppointmentAt(ctx context.Context, doctorID uuid.UUID, date, slot string) (*Appointment, error)
	CreateAppointment(ctx context.Context, appt *Appointment) error
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)
	CountAppointments(ctx context.Context, doctorID uuid.UUID, date string) (int, error)

	// Tokens
	GetTokenByID(ctx context.Context, id uuid.UUID) (*Token, error)
	MaxTokenNumber(ctx context.Context, doctorID uuid.UUID, date string) (int, error)
	CountActiveTokens(ctx context.Context, doctorID uuid.UUID, date string) (int, error)
	CreateToken(ctx context.Context, t *Token) error
	ListTokens(ctx context.Context, doctorID uuid.UUID, date string) ([]Token, error)
	ListTokensByStatus(ctx context.Context, doctorID uuid.UUID, date string, status TokenStatus) ([]Token, error)
	GetCalledToken(ctx context.Context, doctorID uuid.UUID, date string) (*Token, error)
	ListPatientTokens(ctx context.Context, patientID uuid.UUID, status *TokenStatus) ([]Token, error)

	// Conditional transitions: each succeeds only if the token is still in the
	// expected source status, otherwise returns ErrTokenNotFound.
	MarkTokenCalled(ctx context.Context, id uuid.UUID) (*Token, error)
	MarkTokenCompleted(ctx context.Context, id uuid.UUID, actualWaitMins int) (*Token, error)
	MarkTokenCancelled(ctx context.Context, id uuid.UUID) (*Token, error)

	UpdateTokenEstimate(ctx context.Context, id uuid.UUID, mins int) error
	// RecentActualWaits returns actual wait minutes of the doctor's most
	// recently completed tokens, newest first, up to limit.
	RecentActualWaits(ctx context.Context, doctorID uuid.UUID, limit int) ([]int, error)
}
