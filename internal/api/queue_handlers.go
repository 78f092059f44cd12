package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/quickmed/opd-scheduling/internal/clinic"
)

func issueTokenHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req IssueTokenRequest
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

		var apptID *uuid.UUID
		if req.AppointmentID != nil {
			id, err := uuid.Parse(*req.AppointmentID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
				return
			}
			apptID = &id
		}

		token, err := retryBusy(r.Context(), func() (*clinic.Token, error) {
			return svc.IssueToken(r.Context(), clinic.TokenRequest{
				PatientID:     patientID,
				DoctorID:      doctorID,
				Date:          req.Date,
				AppointmentID: apptID,
			})
		})
		if err != nil {
			handleClinicError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toTokenResponse(token))
	}
}

func queueHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, date, ok := parseQueueQuery(w, r)
		if !ok {
			return
		}

		snap, err := svc.QueueSnapshot(r.Context(), doctorID, date)
		if err != nil {
			handleClinicError(w, err)
			return
		}

		resp := QueueResponse{
			DoctorID:       snap.DoctorID,
			Date:           snap.Date,
			Waiting:        make([]TokenResponse, 0, len(snap.Waiting)),
			WaitingCount:   snap.WaitingCount,
			CompletedCount: snap.CompletedCount,
			CancelledCount: snap.CancelledCount,
			AverageWait:    snap.AverageWait,
		}
		if snap.Called != nil {
			called := toTokenResponse(snap.Called)
			resp.Called = &called
		}
		if snap.Next != nil {
			next := toTokenResponse(snap.Next)
			resp.Next = &next
		}
		for i := range snap.Waiting {
			resp.Waiting = append(resp.Waiting, toTokenResponse(&snap.Waiting[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func callTokenHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "invalid_token_id")
		if !ok {
			return
		}
		token, err := retryBusy(r.Context(), func() (*clinic.Token, error) {
			return svc.CallToken(r.Context(), id)
		})
		if err != nil {
			handleClinicError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTokenResponse(token))
	}
}

func callNextTokenHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, date, ok := parseQueueQuery(w, r)
		if !ok {
			return
		}
		token, err := retryBusy(r.Context(), func() (*clinic.Token, error) {
			return svc.CallNextToken(r.Context(), doctorID, date)
		})
		if err != nil {
			handleClinicError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTokenResponse(token))
	}
}

func completeTokenHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "invalid_token_id")
		if !ok {
			return
		}

		var req CompleteTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		token, err := retryBusy(r.Context(), func() (*clinic.Token, error) {
			return svc.CompleteToken(r.Context(), id, req.ActualWaitMins)
		})
		if err != nil {
			handleClinicError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTokenResponse(token))
	}
}

func cancelTokenHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "invalid_token_id")
		if !ok {
			return
		}
		token, err := retryBusy(r.Context(), func() (*clinic.Token, error) {
			return svc.CancelToken(r.Context(), id)
		})
		if err != nil {
			handleClinicError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTokenResponse(token))
	}
}

func tokenSummaryHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, date, ok := parseQueueQuery(w, r)
		if !ok {
			return
		}

		sum, err := svc.DailySummary(r.Context(), doctorID, date)
		if err != nil {
			handleClinicError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SummaryResponse{
			DoctorID:       sum.DoctorID,
			Date:           sum.Date,
			TotalTokens:    sum.TotalTokens,
			Waiting:        sum.Waiting,
			Called:         sum.Called,
			Completed:      sum.Completed,
			Cancelled:      sum.Cancelled,
			AverageWait:    sum.AverageWait,
			CompletionRate: sum.CompletionRate,
		})
	}
}

func patientTokensHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r, "invalid_patient_id")
		if !ok {
			return
		}

		var status *clinic.TokenStatus
		if s := r.URL.Query().Get("status"); s != "" {
			st := clinic.TokenStatus(s)
			switch st {
			case clinic.TokenWaiting, clinic.TokenCalled, clinic.TokenCompleted, clinic.TokenCancelled:
				status = &st
			default:
				writeError(w, http.StatusBadRequest, "invalid_status", "unknown token status")
				return
			}
		}

		tokens, err := svc.PatientTokens(r.Context(), id, status)
		if err != nil {
			handleClinicError(w, err)
			return
		}

		resp := make([]TokenResponse, 0, len(tokens))
		for i := range tokens {
			resp = append(resp, toTokenResponse(&tokens[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func parseQueueQuery(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return uuid.Nil, "", false
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "missing_date", "date is required (YYYY-MM-DD)")
		return uuid.Nil, "", false
	}
	return doctorID, date, true
}
