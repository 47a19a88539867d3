// Package baseline builds per-person early-history baselines and attaches
// deviation statistics to every wave. Each person is compared to their own
// history, never to the population.
package baseline

import (
	"math"

	"github.com/montanaflynn/stats"

	"driftwatch/domain/risk"
	"driftwatch/domain/survey"
)

// Options control baseline construction.
type Options struct {
	// MinWaves is the minimum wave count for a person to receive a baseline.
	MinWaves int
	// BaselineWaves fixes the baseline window size. Zero means half of the
	// person's history, clamped to at least one wave.
	BaselineWaves int
}

// DefaultOptions match the documented configuration surface.
func DefaultOptions() Options {
	return Options{MinWaves: 2}
}

// Build computes, per person and feature, mean and standard deviation over
// the baseline window. Persons with too few waves are skipped silently;
// features with no observed value in the window yield no entry. A zero
// standard deviation is replaced with risk.Epsilon so later division stays
// defined. Pure function of its input.
func Build(f *survey.Frame, features []string, opts Options) *risk.BaselineTable {
	if opts.MinWaves < 1 {
		opts.MinWaves = DefaultOptions().MinWaves
	}

	table := risk.NewBaselineTable()
	for _, person := range f.Persons() {
		rows := f.RowsFor(person)
		if len(rows) < opts.MinWaves {
			continue
		}

		nBaseline := opts.BaselineWaves
		if nBaseline <= 0 {
			nBaseline = len(rows) / 2
		}
		if nBaseline < 1 {
			nBaseline = 1
		}
		if nBaseline > len(rows) {
			nBaseline = len(rows)
		}
		window := rows[:nBaseline]

		for _, feat := range features {
			col := f.Column(feat)
			if col == nil {
				continue
			}
			vals := make([]float64, 0, len(window))
			for _, r := range window {
				if !survey.IsMissing(col[r]) {
					vals = append(vals, col[r])
				}
			}
			if len(vals) == 0 {
				continue
			}

			mean, _ := stats.Mean(vals)
			// Sample standard deviation: a single-observation window leaves
			// the std undefined, and that undefinedness must propagate.
			std := sampleStd(vals, mean)
			if std == 0 {
				std = risk.Epsilon
			}
			table.Put(person, feat, risk.FeatureBaseline{Mean: mean, Std: std})
		}
	}
	return table
}

// AttachDeviations left-joins baseline statistics onto every wave row and
// derives deviation, percent change, and z-score per feature. Persons
// without a baseline read as missing. Widens the frame in place; existing
// columns are untouched.
func AttachDeviations(f *survey.Frame, baselines *risk.BaselineTable, features []string) error {
	for _, feat := range features {
		col := f.Column(feat)
		if col == nil {
			continue
		}

		current := f.NewColumn()
		baseMean := f.NewColumn()
		baseStd := f.NewColumn()
		deviation := f.NewColumn()
		pctChange := f.NewColumn()
		zScore := f.NewColumn()

		for i := 0; i < f.Len(); i++ {
			b, ok := baselines.Get(f.PersonAt(i), feat)
			if !ok {
				continue
			}
			v := col[i]
			current[i] = v
			baseMean[i] = b.Mean
			baseStd[i] = b.Std

			dev := v - b.Mean
			deviation[i] = dev
			if b.Mean != 0 {
				pctChange[i] = dev / math.Abs(b.Mean) * 100
			} else {
				pctChange[i] = 0
			}
			// Zero std should be impossible after epsilon substitution, but
			// the guard protects against alternate baseline sources.
			if !survey.IsMissing(b.Std) && b.Std != 0 {
				zScore[i] = dev / b.Std
			}
		}

		if err := f.AddColumn(risk.CurrentCol(feat), current); err != nil {
			return err
		}
		if err := f.AddColumn(risk.BaselineMeanCol(feat), baseMean); err != nil {
			return err
		}
		if err := f.AddColumn(risk.BaselineStdCol(feat), baseStd); err != nil {
			return err
		}
		if err := f.AddColumn(risk.DeviationCol(feat), deviation); err != nil {
			return err
		}
		if err := f.AddColumn(risk.PctChangeCol(feat), pctChange); err != nil {
			return err
		}
		if err := f.AddColumn(risk.ZScoreCol(feat), zScore); err != nil {
			return err
		}
	}
	return nil
}

// sampleStd is the n-1 standard deviation; NaN for a single observation.
func sampleStd(vals []float64, mean float64) float64 {
	n := len(vals)
	if n < 2 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range vals {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(n-1))
}
