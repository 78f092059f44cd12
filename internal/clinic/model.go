package clinic

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentScheduled  AppointmentStatus = "scheduled"
	AppointmentInProgress AppointmentStatus = "in_progress"
	AppointmentCompleted  AppointmentStatus = "completed"
	AppointmentCancelled  AppointmentStatus = "cancelled"
)

type TokenStatus string

const (
	TokenWaiting   TokenStatus = "waiting"
	TokenCalled    TokenStatus = "called"
	TokenCompleted TokenStatus = "completed"
	TokenCancelled TokenStatus = "cancelled"
)

type ConsultationType string

const (
	ConsultInPerson ConsultationType = "in_person"
	ConsultVideo    ConsultationType = "video"
	ConsultPhone    ConsultationType = "phone"
)

// DateLayout is the wire and storage format for visit dates.
const DateLayout = "2006-01-02"

// TimeLayout is the wire format for slot times within a day.
const TimeLayout = "15:04"

type Doctor struct {
	ID                uuid.UUID
	FirstName         string
	LastName          string
	Specialization    string
	Department        string
	ExperienceYears   int
	ConsultationFee   float64
	Rating            float64  // 0-5, aggregated patient feedback
	AvailableDays     []string // weekday names, e.g. "Monday"
	DayStart          string   // HH:MM
	DayEnd            string   // HH:MM
	MaxPatientsPerDay int
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (d *Doctor) FullName() string {
	return d.FirstName + " " + d.LastName
}

// AvailableOn reports whether the doctor works on the weekday of the given date.
// An empty AvailableDays list means available every day.
func (d *Doctor) AvailableOn(date string) bool {
	if len(d.AvailableDays) == 0 {
		return true
	}
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	weekday := t.Weekday().String()
	for _, day := range d.AvailableDays {
		if day == weekday {
			return true
		}
	}
	return false
}

type Patient struct {
	ID          uuid.UUID
	FirstName   string
	LastName    string
	Email       *string
	Phone       *string
	DateOfBirth *time.Time
	BloodGroup  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      string // YYYY-MM-DD
	Time      string // HH:MM
	Status    AppointmentStatus
	Type      ConsultationType
	Symptoms  *string
	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Token is a queue ticket for one patient in a doctor's daily queue.
// Number is unique and strictly increasing per (doctor, date) and is never
// reused or renumbered, even after cancellations.
type Token struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	DoctorID      uuid.UUID
	Date          string // YYYY-MM-DD
	Number        int
	Status        TokenStatus
	EstimatedWait int  // minutes
	ActualWait    *int // minutes, set on completion
	AppointmentID *uuid.UUID
	CalledAt      *time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// QueueSnapshot is the display-board view of one doctor's daily queue.
type QueueSnapshot struct {
	DoctorID       uuid.UUID
	Date           string
	Called         *Token
	Next           *Token
	Waiting        []Token
	WaitingCount   int
	CompletedCount int
	CancelledCount int
	AverageWait    int // minutes, over completed tokens
}

// DailySummary aggregates one doctor's token activity for a date.
type DailySummary struct {
	DoctorID       uuid.UUID
	Date           string
	TotalTokens    int
	Waiting        int
	Called         int
	Completed      int
	Cancelled      int
	AverageWait    int     // minutes
	CompletionRate float64 // percent
}
