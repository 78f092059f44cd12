package clinic

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2030-01-10 is a Thursday
const testDate = "2030-01-10"

func testDoctor(spec string, years, maxPerDay int) Doctor {
	return Doctor{
		ID:                uuid.New(),
		FirstName:         "A",
		LastName:          "B",
		Specialization:    spec,
		ExperienceYears:   years,
		MaxPatientsPerDay: maxPerDay,
		Active:            true,
	}
}

func TestRecommendDeterministic(t *testing.T) {
	scorer := NewScorer(DefaultScorerWeights())
	doctors := []Doctor{
		testDoctor("Cardiology", 10, 20),
		testDoctor("Dermatology", 5, 20),
		testDoctor("General Practice", 20, 20),
	}
	booked := map[uuid.UUID]int{}

	first := scorer.Recommend(doctors, booked, testDate, "chest pain", "", 5)
	second := scorer.Recommend(doctors, booked, testDate, "chest pain", "", 5)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Doctor.ID, second[i].Doctor.ID)
		assert.Equal(t, first[i].Score, second[i].Score)
	}
}

func TestRecommendSymptomMatchRanksFirst(t *testing.T) {
	scorer := NewScorer(DefaultScorerWeights())
	cardio := testDoctor("Cardiology", 10, 20)
	derm := testDoctor("Dermatology", 10, 20)

	recs := scorer.Recommend([]Doctor{derm, cardio}, map[uuid.UUID]int{}, testDate, "chest pain and palpitations", "", 5)

	require.Len(t, recs, 2)
	assert.Equal(t, cardio.ID, recs[0].Doctor.ID)
	assert.Greater(t, recs[0].SpecializationScore, recs[1].SpecializationScore)
}

func TestRecommendPreferredSpecializationExactMatch(t *testing.T) {
	scorer := NewScorer(DefaultScorerWeights())
	ortho := testDoctor("Orthopedics", 5, 20)
	gp := testDoctor("General Practice", 5, 20)

	recs := scorer.Recommend([]Doctor{gp, ortho}, map[uuid.UUID]int{}, testDate, "", "orthopedics", 5)

	require.Len(t, recs, 2)
	assert.Equal(t, ortho.ID, recs[0].Doctor.ID)
	assert.Equal(t, 1.0, recs[0].SpecializationScore)
}

func TestRecommendTieBrokenByDoctorID(t *testing.T) {
	scorer := NewScorer(DefaultScorerWeights())
	a := testDoctor("General Practice", 10, 20)
	b := testDoctor("General Practice", 10, 20)

	recs := scorer.Recommend([]Doctor{b, a}, map[uuid.UUID]int{}, testDate, "", "", 5)

	require.Len(t, recs, 2)
	assert.Equal(t, recs[0].Score, recs[1].Score)
	assert.Less(t, recs[0].Doctor.ID.String(), recs[1].Doctor.ID.String())
}

func TestRecommendFullDoctorScoresLower(t *testing.T) {
	scorer := NewScorer(DefaultScorerWeights())
	free := testDoctor("Cardiology", 10, 20)
	full := testDoctor("Cardiology", 10, 20)
	booked := map[uuid.UUID]int{full.ID: 20}

	recs := scorer.Recommend([]Doctor{full, free}, booked, testDate, "chest pain", "", 5)

	require.Len(t, recs, 2)
	assert.Equal(t, free.ID, recs[0].Doctor.ID)
	assert.Equal(t, 0.0, recs[1].AvailabilityScore)
	assert.Equal(t, 0, recs[1].RemainingCapacity)
}

func TestRecommendSkipsInactiveDoctors(t *testing.T) {
	scorer := NewScorer(DefaultScorerWeights())
	inactive := testDoctor("Cardiology", 10, 20)
	inactive.Active = false

	recs := scorer.Recommend([]Doctor{inactive}, map[uuid.UUID]int{}, testDate, "chest pain", "", 5)

	assert.Empty(t, recs)
}

func TestRecommendSkipsUnavailableWeekday(t *testing.T) {
	scorer := NewScorer(DefaultScorerWeights())
	doc := testDoctor("Cardiology", 10, 20)
	doc.AvailableDays = []string{"Monday"} // test date is a Thursday

	recs := scorer.Recommend([]Doctor{doc}, map[uuid.UUID]int{}, testDate, "chest pain", "", 5)

	require.Len(t, recs, 1)
	assert.Equal(t, 0.0, recs[0].AvailabilityScore)
}

func TestRecommendLimit(t *testing.T) {
	scorer := NewScorer(DefaultScorerWeights())
	var doctors []Doctor
	for i := 0; i < 10; i++ {
		doctors = append(doctors, testDoctor("General Practice", i, 20))
	}

	recs := scorer.Recommend(doctors, map[uuid.UUID]int{}, testDate, "", "", 3)
	assert.Len(t, recs, 3)

	// non-positive limit falls back to default of 5
	recs = scorer.Recommend(doctors, map[uuid.UUID]int{}, testDate, "", "", 0)
	assert.Len(t, recs, 5)
}

func TestExperienceScoreSaturates(t *testing.T) {
	assert.Equal(t, 1.0, experienceScore(20))
	assert.Equal(t, 1.0, experienceScore(35))
	assert.Equal(t, 0.5, experienceScore(10))
	assert.Equal(t, 0.0, experienceScore(-1))
}
