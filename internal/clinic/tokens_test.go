package clinic

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueTokenSequentialNumbers(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)
	pat := seedPatient(repo)

	for i := 1; i <= 5; i++ {
		tok := mustIssue(t, svc, doc.ID, pat.ID, testDate)
		assert.Equal(t, i, tok.Number)
		assert.Equal(t, TokenWaiting, tok.Status)
	}
}

func TestIssueTokenConcurrentUniqueNumbers(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)
	pat := seedPatient(repo)

	const n = 30
	numbers := make(chan int, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := issueRetry(t, svc, TokenRequest{
				PatientID: pat.ID,
				DoctorID:  doc.ID,
				Date:      testDate,
			})
			if err == nil {
				numbers <- tok.Number
			}
		}()
	}
	wg.Wait()
	close(numbers)

	var got []int
	for num := range numbers {
		got = append(got, num)
	}
	require.Len(t, got, n)

	sort.Ints(got)
	for i, num := range got {
		assert.Equal(t, i+1, num, "numbers must be gap-free and unique")
	}
}

func TestIssueTokenCapacityExceeded(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 2)
	pat := seedPatient(repo)

	mustIssue(t, svc, doc.ID, pat.ID, testDate)
	mustIssue(t, svc, doc.ID, pat.ID, testDate)

	_, err := issueRetry(t, svc, TokenRequest{PatientID: pat.ID, DoctorID: doc.ID, Date: testDate})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestIssueTokenInactiveDoctor(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)
	doc.Active = false
	repo.PutDoctor(doc)
	pat := seedPatient(repo)

	_, err := issueRetry(t, svc, TokenRequest{PatientID: pat.ID, DoctorID: doc.ID, Date: testDate})
	assert.ErrorIs(t, err, ErrDoctorInactive)
}

func TestIssueTokenUnknownPatient(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)

	_, err := issueRetry(t, svc, TokenRequest{PatientID: uuid.New(), DoctorID: doc.ID, Date: testDate})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestCallNextSingleActiveToken(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)
	pat := seedPatient(repo)

	tok1 := mustIssue(t, svc, doc.ID, pat.ID, testDate)
	tok2 := mustIssue(t, svc, doc.ID, pat.ID, testDate)

	called, err := svc.CallNextToken(context.Background(), doc.ID, testDate)
	require.NoError(t, err)
	assert.Equal(t, tok1.ID, called.ID)
	assert.Equal(t, TokenCalled, called.Status)
	assert.NotNil(t, called.CalledAt)

	// second call while one is active fails, both paths
	_, err = svc.CallNextToken(context.Background(), doc.ID, testDate)
	assert.ErrorIs(t, err, ErrTokenActive)

	_, err = svc.CallToken(context.Background(), tok2.ID)
	assert.ErrorIs(t, err, ErrTokenActive)

	// completing frees the slot
	_, err = svc.CompleteToken(context.Background(), called.ID, 12)
	require.NoError(t, err)

	called2, err := svc.CallNextToken(context.Background(), doc.ID, testDate)
	require.NoError(t, err)
	assert.Equal(t, tok2.ID, called2.ID)
}

func TestCallNextEmptyQueue(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)

	_, err := svc.CallNextToken(context.Background(), doc.ID, testDate)
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestTokenTransitionMatrix(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)
	pat := seedPatient(repo)

	tok := mustIssue(t, svc, doc.ID, pat.ID, testDate)

	// waiting -> completed is not allowed
	_, err := svc.CompleteToken(context.Background(), tok.ID, 10)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	called, err := svc.CallToken(context.Background(), tok.ID)
	require.NoError(t, err)

	// called -> called, called -> cancelled are not allowed
	_, err = svc.CallToken(context.Background(), called.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.CancelToken(context.Background(), called.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	completed, err := svc.CompleteToken(context.Background(), called.ID, 18)
	require.NoError(t, err)
	assert.Equal(t, TokenCompleted, completed.Status)
	require.NotNil(t, completed.ActualWait)
	assert.Equal(t, 18, *completed.ActualWait)
	assert.NotNil(t, completed.CompletedAt)

	// completed tokens never change again
	_, err = svc.CompleteToken(context.Background(), completed.ID, 18)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.CancelToken(context.Background(), completed.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelAlreadyCancelledToken(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)
	pat := seedPatient(repo)

	tok := mustIssue(t, svc, doc.ID, pat.ID, testDate)

	_, err := svc.CancelToken(context.Background(), tok.ID)
	require.NoError(t, err)

	_, err = svc.CancelToken(context.Background(), tok.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// queue depth is not corrupted
	snap, err := svc.QueueSnapshot(context.Background(), doc.ID, testDate)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.WaitingCount)
	assert.Equal(t, 1, snap.CancelledCount)
}

func TestCancelKeepsNumbersStable(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)
	pat := seedPatient(repo)

	tok1 := mustIssue(t, svc, doc.ID, pat.ID, testDate)
	tok2 := mustIssue(t, svc, doc.ID, pat.ID, testDate)
	tok3 := mustIssue(t, svc, doc.ID, pat.ID, testDate)

	_, err := svc.CancelToken(context.Background(), tok2.ID)
	require.NoError(t, err)

	snap, err := svc.QueueSnapshot(context.Background(), doc.ID, testDate)
	require.NoError(t, err)
	require.Len(t, snap.Waiting, 2)
	assert.Equal(t, tok1.Number, snap.Waiting[0].Number)
	assert.Equal(t, tok3.Number, snap.Waiting[1].Number)

	// next issued token continues the sequence past the cancelled number
	tok4 := mustIssue(t, svc, doc.ID, pat.ID, testDate)
	assert.Equal(t, 4, tok4.Number)
}

func TestEstimateScenarioThreeWaiting(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)
	pat := seedPatient(repo)

	// history: completed consultations averaging 10 minutes
	for i := 0; i < 5; i++ {
		tok := mustIssue(t, svc, doc.ID, pat.ID, testDate)
		_, err := svc.CallToken(context.Background(), tok.ID)
		require.NoError(t, err)
		_, err = svc.CompleteToken(context.Background(), tok.ID, 10)
		require.NoError(t, err)
	}

	tok1 := mustIssue(t, svc, doc.ID, pat.ID, testDate)
	tok2 := mustIssue(t, svc, doc.ID, pat.ID, testDate)
	tok3 := mustIssue(t, svc, doc.ID, pat.ID, testDate)

	assert.Equal(t, 0, tok1.EstimatedWait)
	assert.Equal(t, 10, tok2.EstimatedWait)
	assert.Equal(t, 20, tok3.EstimatedWait)
}

func TestEstimatesRefreshOnCancel(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)
	pat := seedPatient(repo)

	tok1 := mustIssue(t, svc, doc.ID, pat.ID, testDate)
	tok2 := mustIssue(t, svc, doc.ID, pat.ID, testDate)
	tok3 := mustIssue(t, svc, doc.ID, pat.ID, testDate)

	// default average applies with no history
	assert.Equal(t, 30, tok3.EstimatedWait)

	_, err := svc.CancelToken(context.Background(), tok2.ID)
	require.NoError(t, err)

	refreshed, err := svc.GetToken(context.Background(), tok3.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, refreshed.EstimatedWait)

	still, err := svc.GetToken(context.Background(), tok1.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, still.EstimatedWait)
}

func TestCompleteTokenClosesLinkedAppointment(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)
	pat := seedPatient(repo)

	appt, err := bookRetry(t, svc, BookingRequest{
		PatientID: pat.ID,
		DoctorID:  doc.ID,
		Date:      testDate,
		Time:      "10:00",
	})
	require.NoError(t, err)

	tok, err := issueRetry(t, svc, TokenRequest{
		PatientID:     pat.ID,
		DoctorID:      doc.ID,
		Date:          testDate,
		AppointmentID: &appt.ID,
	})
	require.NoError(t, err)

	_, err = svc.CallToken(context.Background(), tok.ID)
	require.NoError(t, err)
	_, err = svc.CompleteToken(context.Background(), tok.ID, 25)
	require.NoError(t, err)

	updated, err := svc.GetAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, AppointmentCompleted, updated.Status)
}

func TestIssueTokenAppointmentMismatch(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)
	other := seedDoctor(repo, 0)
	pat := seedPatient(repo)

	appt, err := bookRetry(t, svc, BookingRequest{
		PatientID: pat.ID,
		DoctorID:  other.ID,
		Date:      testDate,
		Time:      "10:00",
	})
	require.NoError(t, err)

	_, err = issueRetry(t, svc, TokenRequest{
		PatientID:     pat.ID,
		DoctorID:      doc.ID,
		Date:          testDate,
		AppointmentID: &appt.ID,
	})
	assert.ErrorIs(t, err, ErrAppointmentMismatch)
}

func TestDailySummary(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)
	pat := seedPatient(repo)

	tok1 := mustIssue(t, svc, doc.ID, pat.ID, testDate)
	tok2 := mustIssue(t, svc, doc.ID, pat.ID, testDate)
	mustIssue(t, svc, doc.ID, pat.ID, testDate)

	_, err := svc.CallToken(context.Background(), tok1.ID)
	require.NoError(t, err)
	_, err = svc.CompleteToken(context.Background(), tok1.ID, 20)
	require.NoError(t, err)
	_, err = svc.CancelToken(context.Background(), tok2.ID)
	require.NoError(t, err)

	sum, err := svc.DailySummary(context.Background(), doc.ID, testDate)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.TotalTokens)
	assert.Equal(t, 1, sum.Waiting)
	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 1, sum.Cancelled)
	assert.Equal(t, 20, sum.AverageWait)
	assert.InDelta(t, 33.33, sum.CompletionRate, 0.1)
}

func TestPatientTokens(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)
	pat := seedPatient(repo)
	other := seedPatient(repo)

	tok := mustIssue(t, svc, doc.ID, pat.ID, testDate)
	mustIssue(t, svc, doc.ID, other.ID, testDate)

	tokens, err := svc.PatientTokens(context.Background(), pat.ID, nil)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, tok.ID, tokens[0].ID)

	waiting := TokenWaiting
	tokens, err = svc.PatientTokens(context.Background(), pat.ID, &waiting)
	require.NoError(t, err)
	assert.Len(t, tokens, 1)

	completed := TokenCompleted
	tokens, err = svc.PatientTokens(context.Background(), pat.ID, &completed)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestQueuesAreIndependentPerDoctorAndDate(t *testing.T) {
	svc, repo := newTestService(t)
	doc1 := seedDoctor(repo, 0)
	doc2 := seedDoctor(repo, 0)
	pat := seedPatient(repo)

	tokA := mustIssue(t, svc, doc1.ID, pat.ID, testDate)
	tokB := mustIssue(t, svc, doc2.ID, pat.ID, testDate)
	tokC := mustIssue(t, svc, doc1.ID, pat.ID, "2030-01-11")

	assert.Equal(t, 1, tokA.Number)
	assert.Equal(t, 1, tokB.Number)
	assert.Equal(t, 1, tokC.Number)

	// calling in one queue does not block another
	_, err := svc.CallNextToken(context.Background(), doc1.ID, testDate)
	require.NoError(t, err)
	_, err = svc.CallNextToken(context.Background(), doc2.ID, testDate)
	require.NoError(t, err)
}

func TestIssueTokenInvalidDate(t *testing.T) {
	svc, repo := newTestService(t)
	doc := seedDoctor(repo, 0)
	pat := seedPatient(repo)

	_, err := svc.IssueToken(context.Background(), TokenRequest{
		PatientID: pat.ID,
		DoctorID:  doc.ID,
		Date:      "10-01-2030",
	})
	assert.True(t, errors.Is(err, ErrInvalidDate))
}
