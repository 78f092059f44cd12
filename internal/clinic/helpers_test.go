package clinic

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/quickmed/opd-scheduling/internal/config"
	redisclient "github.com/quickmed/opd-scheduling/internal/redis"
)

func newTestService(t *testing.T) (*Service, *MemRepository) {
	t.Helper()
	repo := NewMemRepository()
	svc := NewService(repo, redisclient.NewLocalLocker(), config.Config{
		DefaultServiceMins:   15,
		RollingWindow:        20,
		WeightSpecialization: 0.5,
		WeightAvailability:   0.3,
		WeightExperience:     0.2,
	})
	return svc, repo
}

func seedDoctor(repo *MemRepository, maxPerDay int) Doctor {
	d := Doctor{
		ID:                uuid.New(),
		FirstName:         "Asha",
		LastName:          "Rao",
		Specialization:    "General Practice",
		Department:        "Outpatient",
		ExperienceYears:   8,
		DayStart:          "09:00",
		DayEnd:            "17:00",
		MaxPatientsPerDay: maxPerDay,
		Active:            true,
	}
	repo.PutDoctor(d)
	return d
}

func seedPatient(repo *MemRepository) Patient {
	p := Patient{
		ID:        uuid.New(),
		FirstName: "Ravi",
		LastName:  "Kumar",
	}
	repo.PutPatient(p)
	return p
}

// issueRetry retries on transient lock contention, like the calling layer
// is expected to.
func issueRetry(t *testing.T, svc *Service, req TokenRequest) (*Token, error) {
	t.Helper()
	for {
		tok, err := svc.IssueToken(context.Background(), req)
		if errors.Is(err, ErrBusy) {
			continue
		}
		return tok, err
	}
}

func bookRetry(t *testing.T, svc *Service, req BookingRequest) (*Appointment, error) {
	t.Helper()
	for {
		appt, err := svc.BookAppointment(context.Background(), req)
		if errors.Is(err, ErrBusy) {
			continue
		}
		return appt, err
	}
}

func mustIssue(t *testing.T, svc *Service, doctorID, patientID uuid.UUID, date string) *Token {
	t.Helper()
	tok, err := issueRetry(t, svc, TokenRequest{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
	})
	require.NoError(t, err)
	return tok
}
