package model

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes columns to zero mean and unit variance. It is fitted
// on the training split only and applied to everything scored afterwards.
type Scaler struct {
	Means []float64
	Stds  []float64
}

// FitScaler learns per-column mean and std from X.
func FitScaler(X [][]float64) *Scaler {
	if len(X) == 0 {
		return &Scaler{}
	}
	nFeatures := len(X[0])
	s := &Scaler{
		Means: make([]float64, nFeatures),
		Stds:  make([]float64, nFeatures),
	}
	col := make([]float64, len(X))
	for j := 0; j < nFeatures; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Means[j] = mean
		s.Stds[j] = std
	}
	return s
}

// Transform returns a standardized copy of X.
func (s *Scaler) Transform(X [][]float64) [][]float64 {
	if len(s.Means) == 0 {
		return X
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Means[j]) / s.Stds[j]
		}
		out[i] = scaled
	}
	return out
}

// TransformRow standardizes a single feature vector.
func (s *Scaler) TransformRow(row []float64) []float64 {
	if len(s.Means) == 0 {
		return row
	}
	scaled := make([]float64, len(row))
	for j, v := range row {
		scaled[j] = (v - s.Means[j]) / s.Stds[j]
	}
	return scaled
}
