package model

import (
	"math"
	"math/rand"

	"driftwatch/domain/core"
	"driftwatch/domain/risk"
)

// thresholdCandidates are scanned in ascending order; the >= comparison
// resolves F2 ties toward the later threshold.
var thresholdCandidates = []float64{0.20, 0.25, 0.30, 0.35, 0.40}

// TrainOptions parameterize a training run.
type TrainOptions struct {
	Family       Family
	TestFraction float64
	Seed         int64
}

// DefaultTrainOptions match the documented configuration surface.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Family:       FamilyLinear,
		TestFraction: 0.2,
		Seed:         42,
	}
}

// Trained is the run-scoped model artifact: the fitted classifier, its
// optional scaler, the tuned decision threshold, and the exact ordered
// feature columns it was trained on. Column order must be preserved for
// scoring, which aligns inputs positionally.
type Trained struct {
	Model     Classifier
	Family    Family
	Scaler    *Scaler
	Threshold float64
	Columns   []string
	Metrics   risk.ModelMetrics

	// Test split bookkeeping for the fairness evaluator.
	TestIndices []int
	TestProbs   []float64
	TestLabels  []int
}

// Train splits X/y into train/test (stratified by label when both classes
// are present), fits the chosen classifier, evaluates PR-AUC and ROC-AUC on
// the held-out split, and tunes the decision threshold for recall-weighted
// (F2) accuracy. Inputs must already be missing-free; filling happens at
// the caller's classifier boundary.
func Train(X [][]float64, y []int, columns []string, opts TrainOptions) (*Trained, error) {
	if len(X) < 2 || len(X) != len(y) {
		return nil, core.NewInsufficientLabelsError(len(X))
	}
	if opts.TestFraction <= 0 || opts.TestFraction >= 1 {
		opts.TestFraction = DefaultTrainOptions().TestFraction
	}

	trainIdx, testIdx := split(y, opts.TestFraction, opts.Seed)

	XTrain, yTrain := gather(X, y, trainIdx)
	XTest, yTest := gather(X, y, testIdx)

	clf, err := New(opts.Family, opts.Seed)
	if err != nil {
		return nil, err
	}

	var scaler *Scaler
	if RequiresScaling(opts.Family) {
		scaler = FitScaler(XTrain)
		XTrain = scaler.Transform(XTrain)
		XTest = scaler.Transform(XTest)
	}

	if err := clf.Fit(XTrain, yTrain); err != nil {
		return nil, err
	}

	probs := clf.PredictProba(XTest)

	prAUC := 0.0
	if countPositives(yTest) > 0 {
		prAUC = AveragePrecision(yTest, probs)
	}
	rocAUC := 0.0
	if hasBothClasses(yTest) {
		rocAUC = ROCAUC(yTest, probs)
	}

	bestF2, bestThreshold := 0.0, 0.5
	for _, t := range thresholdCandidates {
		pred := make([]int, len(probs))
		for i, p := range probs {
			if p >= t {
				pred[i] = 1
			}
		}
		if f2 := FBeta(yTest, pred, 2); f2 >= bestF2 {
			bestF2, bestThreshold = f2, t
		}
	}

	cols := make([]string, len(columns))
	copy(cols, columns)

	return &Trained{
		Model:     clf,
		Family:    opts.Family,
		Scaler:    scaler,
		Threshold: bestThreshold,
		Columns:   cols,
		Metrics: risk.ModelMetrics{
			F2:     bestF2,
			PRAUC:  prAUC,
			ROCAUC: rocAUC,
		},
		TestIndices: testIdx,
		TestProbs:   probs,
		TestLabels:  yTest,
	}, nil
}

// PredictProbaRow scores one feature vector aligned to Columns.
func (t *Trained) PredictProbaRow(row []float64) float64 {
	if t.Scaler != nil {
		row = t.Scaler.TransformRow(row)
	}
	return t.Model.PredictProba([][]float64{row})[0]
}

// Predict applies the tuned threshold to a probability.
func (t *Trained) Predict(prob float64) int {
	if prob >= t.Threshold {
		return 1
	}
	return 0
}

// split partitions sample indices into train/test. With both classes
// present the split is stratified per class; otherwise a plain shuffled
// split. The seed makes the partition reproducible.
func split(y []int, testFraction float64, seed int64) (trainIdx, testIdx []int) {
	rng := rand.New(rand.NewSource(seed))

	if hasBothClasses(y) {
		for _, class := range []int{0, 1} {
			var idx []int
			for i, label := range y {
				if label == class {
					idx = append(idx, i)
				}
			}
			rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
			nTest := testCount(len(idx), testFraction)
			testIdx = append(testIdx, idx[:nTest]...)
			trainIdx = append(trainIdx, idx[nTest:]...)
		}
		return trainIdx, testIdx
	}

	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
	nTest := testCount(len(idx), testFraction)
	return idx[nTest:], idx[:nTest]
}

// testCount rounds the fraction to a count, keeping at least one sample on
// each side whenever possible.
func testCount(n int, fraction float64) int {
	nTest := int(math.Round(float64(n) * fraction))
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n && n > 1 {
		nTest = n - 1
	}
	if n <= 1 {
		nTest = 0
	}
	return nTest
}

func gather(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	outX := make([][]float64, len(idx))
	outY := make([]int, len(idx))
	for k, i := range idx {
		outX[k] = X[i]
		outY[k] = y[i]
	}
	return outX, outY
}

func countPositives(y []int) int {
	n := 0
	for _, label := range y {
		if label == 1 {
			n++
		}
	}
	return n
}

func hasBothClasses(y []int) bool {
	return countPositives(y) > 0 && countPositives(y) < len(y)
}
