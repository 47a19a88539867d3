// Package scoring maps model probabilities onto the user-facing risk
// surface: a 0-100 score, a coarse band, and a dominant life-domain
// category.
package scoring

import (
	"math"

	"driftwatch/domain/risk"
	"driftwatch/domain/survey"
)

// Default band cut points (inclusive upper bounds).
const (
	DefaultLowMax      = 30.0
	DefaultModerateMax = 60.0
)

// Score maps a probability to a 0-100 risk score.
func Score(prob float64) float64 {
	return math.Min(100, math.Max(0, prob*100))
}

// BandFor buckets a score with inclusive boundaries: <=lowMax is Low,
// <=moderateMax is Moderate, everything above is High.
func BandFor(score, lowMax, moderateMax float64) risk.Band {
	if score <= lowMax {
		return risk.BandLow
	}
	if score <= moderateMax {
		return risk.BandModerate
	}
	return risk.BandHigh
}

// Categorize assigns the dominant domain by summing absolute magnitudes of
// each group's columns on the row. Missing columns and missing values
// contribute 0. Tie-break precedence, evaluated in order: psycho-emotional
// wins on >= both, else metabolic wins on >= cardiovascular, else
// cardiovascular.
func Categorize(rec survey.Record, groups risk.DomainGroups) risk.Category {
	p := groupMagnitude(rec, groups.Psycho)
	m := groupMagnitude(rec, groups.Metabolic)
	c := groupMagnitude(rec, groups.Cardio)

	if p >= m && p >= c {
		return risk.CategoryPsycho
	}
	if m >= c {
		return risk.CategoryMetabolic
	}
	return risk.CategoryCardio
}

func groupMagnitude(rec survey.Record, cols []string) float64 {
	sum := 0.0
	for _, c := range cols {
		v, ok := rec.Values[c]
		if !ok || survey.IsMissing(v) {
			continue
		}
		sum += math.Abs(v)
	}
	return sum
}
