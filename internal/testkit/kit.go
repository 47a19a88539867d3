// Package testkit generates seeded synthetic cohorts so the engine and its
// tests run without an input file.
package testkit

import (
	"fmt"
	"math"
	"math/rand"

	"driftwatch/domain/core"
	"driftwatch/domain/survey"
)

// Default demo cohort shape.
const (
	DefaultPersons = 80
	DefaultWaves   = 6
)

// CohortFeatures are the columns the synthetic cohort carries, in order.
var CohortFeatures = []string{"health_rating", "stress_level", "activity_level"}

// SyntheticCohort builds a longitudinal demo cohort: health_rating follows a
// per-person random walk around 3 with a stable person offset, stress_level
// is stationary noise around 2, activity_level drifts slowly downward. All
// three are clipped to their survey scales. The same seed always produces
// the same cohort.
func SyntheticCohort(nPersons, waves int, seed int64) *survey.Frame {
	if nPersons < 1 {
		nPersons = DefaultPersons
	}
	if waves < 1 {
		waves = DefaultWaves
	}
	rng := rand.New(rand.NewSource(seed))

	n := nPersons * waves
	persons := make([]core.PersonID, 0, n)
	waveIdx := make([]int, 0, n)
	health := make([]float64, 0, n)
	stress := make([]float64, 0, n)
	activity := make([]float64, 0, n)

	for p := 0; p < nPersons; p++ {
		id := core.PersonID(fmt.Sprintf("p%03d", p))
		offset := rng.NormFloat64() * 0.3
		healthWalk := 0.0
		activityWalk := 0.0
		for w := 0; w < waves; w++ {
			healthWalk += rng.NormFloat64()
			activityWalk += rng.NormFloat64() * 0.08

			persons = append(persons, id)
			waveIdx = append(waveIdx, w)
			health = append(health, clip(3+healthWalk+offset, 1, 5))
			stress = append(stress, clip(2+rng.NormFloat64()*0.4, 0, 5))
			activity = append(activity, clip(3-activityWalk, 0, 5))
		}
	}

	f, err := survey.NewFrame(persons, waveIdx)
	if err != nil {
		// Construction above cannot produce duplicate (person, wave) pairs.
		panic(err)
	}
	mustAdd(f, "health_rating", health)
	mustAdd(f, "stress_level", stress)
	mustAdd(f, "activity_level", activity)
	return f
}

// SyntheticGroups assigns each row's person to one of two demographic
// groups, alternating by person index. Used to exercise the fairness report.
func SyntheticGroups(f *survey.Frame) []string {
	groupByPerson := make(map[core.PersonID]string)
	for i, p := range f.Persons() {
		if i%2 == 0 {
			groupByPerson[p] = "group_a"
		} else {
			groupByPerson[p] = "group_b"
		}
	}
	out := make([]string, f.Len())
	for i := 0; i < f.Len(); i++ {
		out[i] = groupByPerson[f.PersonAt(i)]
	}
	return out
}

// SmallFrame builds a frame directly from explicit rows, for tests that need
// exact values. Rows are (person, wave, values-per-feature).
func SmallFrame(features []string, rows []TestRow) (*survey.Frame, error) {
	persons := make([]core.PersonID, len(rows))
	waves := make([]int, len(rows))
	cols := make(map[string][]float64, len(features))
	for _, feat := range features {
		cols[feat] = make([]float64, len(rows))
	}
	for i, r := range rows {
		persons[i] = r.Person
		waves[i] = r.Wave
		if len(r.Values) != len(features) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(r.Values), len(features))
		}
		for j, feat := range features {
			cols[feat][i] = r.Values[j]
		}
	}
	f, err := survey.NewFrame(persons, waves)
	if err != nil {
		return nil, err
	}
	for _, feat := range features {
		if err := f.AddColumn(feat, cols[feat]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// TestRow is one explicit (person, wave) observation for SmallFrame.
type TestRow struct {
	Person core.PersonID
	Wave   int
	Values []float64
}

func mustAdd(f *survey.Frame, name string, vals []float64) {
	if err := f.AddColumn(name, vals); err != nil {
		panic(err)
	}
}

func clip(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
