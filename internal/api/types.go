package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/quickmed/opd-scheduling/internal/clinic"
)

type BookAppointmentRequest struct {
	PatientID string  `json:"patient_id"`
	DoctorID  string  `json:"doctor_id"`
	Date      string  `json:"date"`
	Time      string  `json:"time"`
	Type      string  `json:"consultation_type,omitempty"`
	Symptoms  *string `json:"symptoms,omitempty"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Status    string    `json:"status"`
	Type      string    `json:"consultation_type"`
	Symptoms  *string   `json:"symptoms,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toAppointmentResponse(a *clinic.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		Date:      a.Date,
		Time:      a.Time,
		Status:    string(a.Status),
		Type:      string(a.Type),
		Symptoms:  a.Symptoms,
		CreatedAt: a.CreatedAt,
	}
}

type IssueTokenRequest struct {
	PatientID     string  `json:"patient_id"`
	DoctorID      string  `json:"doctor_id"`
	Date          string  `json:"date"`
	AppointmentID *string `json:"appointment_id,omitempty"`
}

type CompleteTokenRequest struct {
	ActualWaitMins int `json:"actual_wait_minutes"`
}

type TokenResponse struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	Date          string     `json:"date"`
	Number        int        `json:"token_number"`
	Status        string     `json:"status"`
	EstimatedWait int        `json:"estimated_wait_minutes"`
	ActualWait    *int       `json:"actual_wait_minutes,omitempty"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	CalledAt      *time.Time `json:"called_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func toTokenResponse(t *clinic.Token) TokenResponse {
	return TokenResponse{
		ID:            t.ID,
		PatientID:     t.PatientID,
		DoctorID:      t.DoctorID,
		Date:          t.Date,
		Number:        t.Number,
		Status:        string(t.Status),
		EstimatedWait: t.EstimatedWait,
		ActualWait:    t.ActualWait,
		AppointmentID: t.AppointmentID,
		CalledAt:      t.CalledAt,
		CompletedAt:   t.CompletedAt,
	}
}

type QueueResponse struct {
	DoctorID       uuid.UUID       `json:"doctor_id"`
	Date           string          `json:"date"`
	Called         *TokenResponse  `json:"called,omitempty"`
	Next           *TokenResponse  `json:"next,omitempty"`
	Waiting        []TokenResponse `json:"waiting"`
	WaitingCount   int             `json:"waiting_count"`
	CompletedCount int             `json:"completed_count"`
	CancelledCount int             `json:"cancelled_count"`
	AverageWait    int             `json:"average_wait_minutes"`
}

type SummaryResponse struct {
	DoctorID       uuid.UUID `json:"doctor_id"`
	Date           string    `json:"date"`
	TotalTokens    int       `json:"total_tokens"`
	Waiting        int       `json:"waiting"`
	Called         int       `json:"called"`
	Completed      int       `json:"completed"`
	Cancelled      int       `json:"cancelled"`
	AverageWait    int       `json:"average_wait_minutes"`
	CompletionRate float64   `json:"completion_rate"`
}

type RecommendRequest struct {
	Symptoms       string `json:"symptoms"`
	PreferredDate  string `json:"preferred_date"`
	Specialization string `json:"preferred_specialization,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}

type RecommendedDoctor struct {
	DoctorID          uuid.UUID `json:"doctor_id"`
	Name              string    `json:"name"`
	Specialization    string    `json:"specialization"`
	Department        string    `json:"department"`
	Score             float64   `json:"score"`
	SpecializationFit float64   `json:"specialization_score"`
	Availability      float64   `json:"availability_score"`
	Experience        float64   `json:"experience_score"`
	RemainingCapacity int       `json:"remaining_capacity"`
	Reasoning         string    `json:"reasoning"`
}

type RecommendResponse struct {
	Doctors []RecommendedDoctor `json:"recommended_doctors"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
