package clinic

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ScorerWeights are the coefficients of the weighted-sum ranking. They are
// passed in explicitly so identical inputs always produce identical output.
type ScorerWeights struct {
	Specialization float64
	Availability   float64
	Experience     float64
}

func DefaultScorerWeights() ScorerWeights {
	return ScorerWeights{
		Specialization: 0.5,
		Availability:   0.3,
		Experience:     0.2,
	}
}

const (
	matchExact   = 1.0
	matchSymptom = 0.9
	matchPartial = 0.7
	matchBase    = 0.5

	// experience saturates at 20 years
	experienceCapYears = 20.0
)

// symptomKeywords maps a specialization fragment to symptom keywords that
// indicate it. Matching is substring-based and case-insensitive.
var symptomKeywords = map[string][]string{
	"cardiology":  {"heart", "chest pain", "palpitation", "blood pressure"},
	"pediatrics":  {"child", "baby", "kids", "growth"},
	"orthopedics": {"bone", "joint", "fracture", "injury"},
	"dermatology": {"skin", "rash", "acne", "itch"},
	"neurology":   {"headache", "migraine", "seizure", "numbness"},
	"general":     {"general", "checkup", "routine", "fever", "cough"},
}

type Recommendation struct {
	Doctor              Doctor
	Score               float64
	SpecializationScore float64
	AvailabilityScore   float64
	ExperienceScore     float64
	RemainingCapacity   int
	Reasoning           string
}

type Scorer struct {
	weights ScorerWeights
}

func NewScorer(weights ScorerWeights) *Scorer {
	return &Scorer{weights: weights}
}

// Recommend ranks doctors for a symptom/preference query. booked maps doctor
// ID to the number of tokens already issued for the preferred date. The
// ranking is a plain weighted sum with no hidden state; ties are broken by
// doctor ID ascending so output is reproducible.
func (s *Scorer) Recommend(doctors []Doctor, booked map[uuid.UUID]int, date, symptoms, preferredSpecialization string, limit int) []Recommendation {
	if limit <= 0 {
		limit = 5
	}

	recs := make([]Recommendation, 0, len(doctors))
	for _, doc := range doctors {
		if !doc.Active {
			continue
		}

		specScore := specializationScore(doc.Specialization, symptoms, preferredSpecialization)
		availScore, remaining := s.availabilityScore(doc, booked[doc.ID], date)
		expScore := experienceScore(doc.ExperienceYears)

		score := s.weights.Specialization*specScore +
			s.weights.Availability*availScore +
			s.weights.Experience*expScore

		recs = append(recs, Recommendation{
			Doctor:              doc,
			Score:               score,
			SpecializationScore: specScore,
			AvailabilityScore:   availScore,
			ExperienceScore:     expScore,
			RemainingCapacity:   remaining,
			Reasoning:           reasoning(doc, specScore, availScore),
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].Doctor.ID.String() < recs[j].Doctor.ID.String()
	})

	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

func specializationScore(specialization, symptoms, preferred string) float64 {
	spec := strings.ToLower(specialization)

	if preferred != "" {
		pref := strings.ToLower(preferred)
		if strings.Contains(spec, pref) || strings.Contains(pref, spec) {
			return matchExact
		}
		for _, word := range strings.Fields(pref) {
			if strings.Contains(spec, word) {
				return matchPartial
			}
		}
	}

	symptomsLower := strings.ToLower(symptoms)
	for fragment, keywords := range symptomKeywords {
		if !strings.Contains(spec, fragment) {
			continue
		}
		for _, kw := range keywords {
			if strings.Contains(symptomsLower, kw) {
				return matchSymptom
			}
		}
	}

	return matchBase
}

// availabilityScore combines working that weekday with remaining capacity.
func (s *Scorer) availabilityScore(doc Doctor, bookedCount int, date string) (float64, int) {
	if !doc.AvailableOn(date) {
		return 0, 0
	}
	if doc.MaxPatientsPerDay <= 0 {
		return 1, 0
	}
	remaining := doc.MaxPatientsPerDay - bookedCount
	if remaining <= 0 {
		return 0, 0
	}
	return float64(remaining) / float64(doc.MaxPatientsPerDay), remaining
}

func experienceScore(years int) float64 {
	score := float64(years) / experienceCapYears
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

func reasoning(doc Doctor, specScore, availScore float64) string {
	var reasons []string
	switch {
	case specScore >= matchSymptom:
		reasons = append(reasons, "specialization matches reported symptoms")
	case specScore >= matchPartial:
		reasons = append(reasons, "partial specialization match")
	}
	if availScore > 0.5 {
		reasons = append(reasons, "good availability on requested date")
	}
	if doc.ExperienceYears >= 10 {
		reasons = append(reasons, "extensive experience")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "available and qualified")
	}
	return strings.Join(reasons, "; ")
}
