// Package model implements the risk classifiers and their training loop.
// The model family is a closed set behind one capability interface: fit on a
// feature matrix, predict a positive-class probability per row.
package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Family selects a classifier implementation.
type Family string

const (
	FamilyLinear   Family = "linear"
	FamilyEnsemble Family = "ensemble"
)

// Classifier is the shared capability surface of all model families.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	PredictProba(X [][]float64) []float64
	// FeatureImportances returns one non-negative importance per trained
	// feature column, used to rank model contributors for explanations.
	FeatureImportances() []float64
}

// New constructs a classifier of the given family. The seed drives every
// stochastic choice inside the classifier; the linear family is fully
// deterministic and ignores it.
func New(family Family, seed int64) (Classifier, error) {
	switch family {
	case FamilyLinear:
		return NewLinearClassifier(), nil
	case FamilyEnsemble:
		return NewEnsembleClassifier(seed), nil
	default:
		return nil, fmt.Errorf("unknown model family %q", family)
	}
}

// RequiresScaling reports whether a family needs standardized inputs.
func RequiresScaling(family Family) bool {
	return family == FamilyLinear
}

// LinearClassifier is a logistic regression fitted by batch gradient
// descent with automatic inverse-frequency class weighting. Weight
// initialization is all-zeros, so fitting is deterministic.
type LinearClassifier struct {
	weights []float64
	bias    float64

	LearningRate float64
	Iterations   int

	fitted bool
}

// NewLinearClassifier creates a linear classifier with default training
// hyperparameters.
func NewLinearClassifier() *LinearClassifier {
	return &LinearClassifier{
		LearningRate: 0.1,
		Iterations:   1000,
	}
}

// Fit trains the logistic regression on X/y.
func (c *LinearClassifier) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("invalid training shape: %d rows, %d labels", len(X), len(y))
	}
	nFeatures := len(X[0])
	c.weights = make([]float64, nFeatures)
	c.bias = 0

	sampleWeights, totalWeight := balancedSampleWeights(y)

	grad := make([]float64, nFeatures)
	for iter := 0; iter < c.Iterations; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		gradBias := 0.0
		for i, row := range X {
			p := sigmoid(floats.Dot(c.weights, row) + c.bias)
			residual := sampleWeights[i] * (p - float64(y[i]))
			floats.AddScaled(grad, residual, row)
			gradBias += residual
		}
		step := c.LearningRate / totalWeight
		floats.AddScaled(c.weights, -step, grad)
		c.bias -= step * gradBias
	}

	c.fitted = true
	return nil
}

// PredictProba returns the positive-class probability per row.
func (c *LinearClassifier) PredictProba(X [][]float64) []float64 {
	probs := make([]float64, len(X))
	if !c.fitted {
		return probs
	}
	for i, row := range X {
		probs[i] = sigmoid(floats.Dot(c.weights, row) + c.bias)
	}
	return probs
}

// FeatureImportances returns absolute coefficients.
func (c *LinearClassifier) FeatureImportances() []float64 {
	out := make([]float64, len(c.weights))
	for i, w := range c.weights {
		out[i] = math.Abs(w)
	}
	return out
}

// Coefficients exposes the fitted weights.
func (c *LinearClassifier) Coefficients() []float64 {
	out := make([]float64, len(c.weights))
	copy(out, c.weights)
	return out
}

// balancedSampleWeights assigns each sample the inverse-frequency weight of
// its class: n / (nClasses * count(class)).
func balancedSampleWeights(y []int) (weights []float64, total float64) {
	counts := map[int]int{}
	for _, label := range y {
		counts[label]++
	}
	n := float64(len(y))
	k := float64(len(counts))
	weights = make([]float64, len(y))
	for i, label := range y {
		weights[i] = n / (k * float64(counts[label]))
		total += weights[i]
	}
	return weights, total
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	// Numerically stable branch for large negative z.
	e := math.Exp(z)
	return e / (1 + e)
}
