// Package noleakage builds the leakage-safe training set: one row per
// person, label read from the held-out last wave only, features derived from
// strictly earlier waves only. It re-derives its own past-only statistics
// instead of reusing display columns, so nothing computed here can see the
// label wave.
package noleakage

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"driftwatch/domain/core"
	"driftwatch/domain/risk"
	"driftwatch/domain/survey"
)

// Options parameterize the leakage-safe builder.
type Options struct {
	TargetColumn    string
	TargetThreshold float64
	// DeclineThreshold is the slope cutoff for the builder's own decline
	// flag. It is -0.05 here, distinct from the display path's -0.1, and
	// the two must never be unified.
	DeclineThreshold float64
}

// DefaultOptions match the documented configuration surface.
func DefaultOptions(targetColumn string) Options {
	return Options{
		TargetColumn:     targetColumn,
		TargetThreshold:  2.5,
		DeclineThreshold: -0.05,
	}
}

// TrainingSet is a feature matrix plus labels, one row per person in the
// primary path. Columns is the exact ordered list the classifier is trained
// on; scoring later depends on preserving it verbatim.
type TrainingSet struct {
	Persons  []core.PersonID
	Columns  []string
	X        [][]float64 // may contain missing values; filled only at the classifier boundary
	Y        []int
	Fallback bool
}

// Len returns the number of training rows.
func (s *TrainingSet) Len() int {
	return len(s.Y)
}

// Positives counts label-1 rows.
func (s *TrainingSet) Positives() int {
	n := 0
	for _, y := range s.Y {
		if y == 1 {
			n++
		}
	}
	return n
}

// Build runs the primary anti-leakage protocol. Per person, sorted by wave:
// require >=3 waves and >=2 past waves, read the label from the target
// feature at the last wave (skip on missing), then derive every feature
// statistic from past waves only. A feature whose past window is entirely
// missing propagates as missing, never silently zero. A past wave at or
// after the label wave violates the protocol and fails the whole build.
func Build(f *survey.Frame, features []string, opts Options) (*TrainingSet, error) {
	set := &TrainingSet{Columns: featureColumns(f, features)}
	target := f.Column(opts.TargetColumn)
	if target == nil || len(set.Columns) == 0 {
		return set, nil
	}

	for _, person := range f.Persons() {
		rows := f.RowsFor(person)
		if len(rows) < 3 {
			continue
		}
		last := rows[len(rows)-1]
		past := rows[:len(rows)-1]
		if len(past) < 2 {
			continue
		}
		for _, r := range past {
			if f.WaveAt(r) >= f.WaveAt(last) {
				return nil, core.NewLeakageError(person, f.WaveAt(r), f.WaveAt(last))
			}
		}

		// Label from the last wave only, the future relative to features.
		yVal := target[last]
		if survey.IsMissing(yVal) {
			continue
		}
		label := 0
		if yVal < opts.TargetThreshold {
			label = 1
		}

		row := make([]float64, 0, len(set.Columns))
		for _, feat := range features {
			if !f.HasColumn(feat) {
				continue
			}
			row = append(row, pastOnlyStats(f.Column(feat), past, opts.DeclineThreshold)...)
		}

		set.Persons = append(set.Persons, person)
		set.X = append(set.X, row)
		set.Y = append(set.Y, label)
	}
	return set, nil
}

// pastOnlyStats derives [deviation, pctChange, z, slope, declining] from the
// past window alone. Missing entries are imputed with the window's own mean
// first; an entirely missing window leaves every statistic undefined.
func pastOnlyStats(col []float64, past []int, declineThreshold float64) []float64 {
	vals, ok := imputePast(col, past)
	if !ok {
		nan := math.NaN()
		return []float64{nan, nan, nan, nan, nan}
	}

	mean := meanOf(vals)
	std := populationStd(vals, mean)
	if std == 0 {
		std = risk.Epsilon
	}

	// Current value is the wave immediately preceding the label wave, not a
	// window mean.
	current := vals[len(vals)-1]
	deviation := current - mean

	pctChange := 0.0
	if mean != 0 {
		pctChange = deviation / math.Abs(mean) * 100
	}
	z := deviation / std

	xs := make([]float64, len(vals))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, vals, nil, false)

	declining := 0.0
	if slope < declineThreshold {
		declining = 1
	}

	return []float64{deviation, pctChange, z, slope, declining}
}

// BuildFallback is the less strict, row-level labeling scheme used when the
// primary set has too few persons. It labels every wave row with the
// person's last observed target value (< threshold), or, when the target is
// unavailable, with whether any decline flag is set on that row. The
// statistical unit shifts from person to row, trading the leakage guarantee
// for availability; callers must log that coverage was reduced.
func BuildFallback(f *survey.Frame, features []string, targetColumn string, targetThreshold float64) *TrainingSet {
	set := &TrainingSet{Fallback: true}

	target := f.Column(targetColumn)
	labels := make([]int, f.Len())
	if target != nil {
		for _, person := range f.Persons() {
			rows := f.RowsFor(person)
			lastVal := survey.Missing()
			for _, r := range rows {
				if !survey.IsMissing(target[r]) {
					lastVal = target[r]
				}
			}
			label := 0
			if !survey.IsMissing(lastVal) && lastVal < targetThreshold {
				label = 1
			}
			for _, r := range rows {
				labels[r] = label
			}
		}
	} else {
		for i := 0; i < f.Len(); i++ {
			for _, feat := range features {
				flags := f.Column(risk.DecliningCol(feat))
				if flags != nil && flags[i] == 1 {
					labels[i] = 1
					break
				}
			}
		}
	}

	for i := 0; i < f.Len(); i++ {
		set.Persons = append(set.Persons, f.PersonAt(i))
		set.Y = append(set.Y, labels[i])
	}
	return set
}

// featureColumns lists the derived columns the primary builder emits, in
// feature order, five per tracked feature present in the frame.
func featureColumns(f *survey.Frame, features []string) []string {
	cols := make([]string, 0, len(features)*5)
	for _, feat := range features {
		if !f.HasColumn(feat) {
			continue
		}
		cols = append(cols,
			risk.DeviationCol(feat),
			risk.PctChangeCol(feat),
			risk.ZScoreCol(feat),
			risk.SlopeCol(feat),
			risk.DecliningCol(feat),
		)
	}
	return cols
}

func imputePast(col []float64, past []int) ([]float64, bool) {
	sum, n := 0.0, 0
	for _, r := range past {
		if !survey.IsMissing(col[r]) {
			sum += col[r]
			n++
		}
	}
	if n == 0 {
		return nil, false
	}
	mean := sum / float64(n)

	vals := make([]float64, len(past))
	for i, r := range past {
		if survey.IsMissing(col[r]) {
			vals[i] = mean
		} else {
			vals[i] = col[r]
		}
	}
	return vals, true
}

func meanOf(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// populationStd is the n-denominator standard deviation, matching the
// builder's own statistics rather than the baseline builder's sample std.
func populationStd(vals []float64, mean float64) float64 {
	sum := 0.0
	for _, v := range vals {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)))
}
