// Package signals derives weak early-warning signals from a person's wave
// history: moving-average change, trend slope, and decline flags. Small,
// not-yet-alarming movements here may precede a larger drift.
package signals

import (
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"driftwatch/domain/risk"
	"driftwatch/domain/survey"
)

// DefaultMovingAvgWindow is the trailing window for moving averages.
const DefaultMovingAvgWindow = 3

// DefaultSlopeWindow is the trailing window for trend slopes. Call sites
// may shorten it; the display pipeline runs with 4.
const DefaultSlopeWindow = 6

// AttachMovingAverage adds, per feature, the trailing moving average and the
// current-minus-average change. Partial windows are allowed from the first
// wave on; the average is taken over non-missing values only.
func AttachMovingAverage(f *survey.Frame, features []string, window int) error {
	if window < 1 {
		window = DefaultMovingAvgWindow
	}

	for _, feat := range features {
		col := f.Column(feat)
		if col == nil {
			continue
		}

		ma := f.NewColumn()
		maChange := f.NewColumn()

		for _, person := range f.Persons() {
			rows := f.RowsFor(person)
			for pos, r := range rows {
				start := pos - window + 1
				if start < 0 {
					start = 0
				}
				vals := make([]float64, 0, window)
				for _, wr := range rows[start : pos+1] {
					if !survey.IsMissing(col[wr]) {
						vals = append(vals, col[wr])
					}
				}
				if len(vals) == 0 {
					continue
				}
				avg, _ := stats.Mean(vals)
				ma[r] = avg
				maChange[r] = col[r] - avg
			}
		}

		if err := f.AddColumn(risk.MovingAvgCol(feat), ma); err != nil {
			return err
		}
		if err := f.AddColumn(risk.MAChangeCol(feat), maChange); err != nil {
			return err
		}
	}
	return nil
}

// AttachTrendSlope fits, per person, an ordinary-least-squares line over the
// trailing `window` waves of each feature and stores the slope against the
// last wave of that window. Requires at least two waves; missing values are
// imputed with the window's own mean before fitting. Persons or features
// with an entirely missing window are skipped.
func AttachTrendSlope(f *survey.Frame, features []string, window int) error {
	if window < 2 {
		window = DefaultSlopeWindow
	}

	slopeCols := make(map[string][]float64, len(features))
	for _, feat := range features {
		if f.HasColumn(feat) {
			slopeCols[feat] = f.NewColumn()
		}
	}

	for _, person := range f.Persons() {
		rows := f.RowsFor(person)
		if len(rows) > window {
			rows = rows[len(rows)-window:]
		}
		if len(rows) < 2 {
			continue
		}
		lastRow := rows[len(rows)-1]

		xs := make([]float64, len(rows))
		for i := range xs {
			xs[i] = float64(i)
		}

		for _, feat := range features {
			col := f.Column(feat)
			if col == nil {
				continue
			}
			ys, ok := imputeWindow(col, rows)
			if !ok {
				continue
			}
			_, slope := stat.LinearRegression(xs, ys, nil, false)
			slopeCols[feat][lastRow] = slope
		}
	}

	for _, feat := range features {
		vals, ok := slopeCols[feat]
		if !ok {
			continue
		}
		if err := f.AddColumn(risk.SlopeCol(feat), vals); err != nil {
			return err
		}
	}
	return nil
}

// FlagDeclining derives a binary decline flag from each slope column:
// 1 when slope < threshold, 0 otherwise, missing when the slope is missing.
// The threshold is caller-chosen because two distinct cutoffs exist in the
// system and both must stay reproducible.
func FlagDeclining(f *survey.Frame, features []string, threshold float64) error {
	for _, feat := range features {
		slopes := f.Column(risk.SlopeCol(feat))
		if slopes == nil {
			continue
		}
		flags := f.NewColumn()
		for i, s := range slopes {
			if survey.IsMissing(s) {
				continue
			}
			if s < threshold {
				flags[i] = 1
			} else {
				flags[i] = 0
			}
		}
		if err := f.AddColumn(risk.DecliningCol(feat), flags); err != nil {
			return err
		}
	}
	return nil
}

// imputeWindow extracts the window's values with missing entries replaced by
// the window's own mean. ok is false when every value is missing.
func imputeWindow(col []float64, rows []int) ([]float64, bool) {
	sum, n := 0.0, 0
	for _, r := range rows {
		if !survey.IsMissing(col[r]) {
			sum += col[r]
			n++
		}
	}
	if n == 0 {
		return nil, false
	}
	mean := sum / float64(n)

	ys := make([]float64, len(rows))
	for i, r := range rows {
		if survey.IsMissing(col[r]) {
			ys[i] = mean
		} else {
			ys[i] = col[r]
		}
	}
	return ys, true
}
