package model

import (
	"math/rand"
	"testing"

	"driftwatch/domain/core"
)

// separableData builds a dataset where the first feature carries the label
// signal and the second is seeded noise.
func separableData(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		label := 0
		signal := -1.0
		if i%4 == 0 { // imbalanced, like real drift labels
			label = 1
			signal = 1.0
		}
		X[i] = []float64{signal + rng.NormFloat64()*0.2, rng.NormFloat64()}
		y[i] = label
	}
	return X, y
}

func TestTrain_LinearOnSeparableData(t *testing.T) {
	X, y := separableData(60, 7)

	trained, err := Train(X, y, []string{"signal", "noise"}, TrainOptions{
		Family:       FamilyLinear,
		TestFraction: 0.2,
		Seed:         42,
	})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if trained.Scaler == nil {
		t.Error("linear family must fit a scaler")
	}
	if !isCandidate(trained.Threshold) {
		t.Errorf("threshold %v not from the candidate set", trained.Threshold)
	}
	if trained.Metrics.ROCAUC < 0.9 {
		t.Errorf("expected near-perfect ROC-AUC on separable data, got %v", trained.Metrics.ROCAUC)
	}
	if len(trained.TestProbs) != len(trained.TestIndices) || len(trained.TestLabels) != len(trained.TestIndices) {
		t.Error("test split bookkeeping lengths disagree")
	}

	// A clear positive row must outscore a clear negative row.
	pPos := trained.PredictProbaRow([]float64{1.0, 0})
	pNeg := trained.PredictProbaRow([]float64{-1.0, 0})
	if pPos <= pNeg {
		t.Errorf("positive row prob %v not above negative row prob %v", pPos, pNeg)
	}
}

func TestTrain_EnsembleOnSeparableData(t *testing.T) {
	X, y := separableData(60, 7)

	trained, err := Train(X, y, []string{"signal", "noise"}, TrainOptions{
		Family:       FamilyEnsemble,
		TestFraction: 0.2,
		Seed:         42,
	})
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if trained.Scaler != nil {
		t.Error("ensemble family must not fit a scaler")
	}

	imps := trained.Model.FeatureImportances()
	if len(imps) != 2 {
		t.Fatalf("expected 2 importances, got %d", len(imps))
	}
	if imps[0] <= imps[1] {
		t.Errorf("signal feature should dominate importances: %v", imps)
	}
}

func TestTrain_SameSeedSameArtifact(t *testing.T) {
	X, y := separableData(60, 7)
	opts := TrainOptions{Family: FamilyEnsemble, TestFraction: 0.2, Seed: 11}

	a, err := Train(X, y, []string{"signal", "noise"}, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Train(X, y, []string{"signal", "noise"}, opts)
	if err != nil {
		t.Fatal(err)
	}

	if a.Threshold != b.Threshold {
		t.Errorf("thresholds differ across identical runs: %v vs %v", a.Threshold, b.Threshold)
	}
	for i := range a.TestProbs {
		if a.TestProbs[i] != b.TestProbs[i] {
			t.Fatalf("test probabilities differ at %d: %v vs %v", i, a.TestProbs[i], b.TestProbs[i])
		}
	}
}

func TestTrain_StratifiedSplitKeepsBothClasses(t *testing.T) {
	// 15 positives, 45 negatives: a 20% stratified split must hold out at
	// least one of each class.
	X, y := separableData(60, 3)

	trained, err := Train(X, y, []string{"signal", "noise"}, TrainOptions{
		Family:       FamilyLinear,
		TestFraction: 0.2,
		Seed:         1,
	})
	if err != nil {
		t.Fatal(err)
	}

	pos, neg := 0, 0
	for _, label := range trained.TestLabels {
		if label == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		t.Errorf("stratified test split lost a class: %d pos, %d neg", pos, neg)
	}
}

func TestTrain_ThresholdTiesResolveToLater(t *testing.T) {
	// Scenario: every test probability lands at 1, so all candidate
	// thresholds score identically and the >= comparison must keep the last.
	X := [][]float64{}
	y := []int{}
	for i := 0; i < 20; i++ {
		label := i % 2
		X = append(X, []float64{float64(label)*10 - 5})
		y = append(y, label)
	}

	trained, err := Train(X, y, []string{"signal"}, TrainOptions{
		Family:       FamilyLinear,
		TestFraction: 0.2,
		Seed:         5,
	})
	if err != nil {
		t.Fatal(err)
	}
	// Perfectly separated probabilities sit near 0 and 1, outside the
	// candidate range, so every threshold yields the same F2.
	if trained.Threshold != 0.40 {
		t.Errorf("tied candidates must resolve to the last (0.40), got %v", trained.Threshold)
	}
}

func TestTrain_RejectsDegenerateInput(t *testing.T) {
	_, err := Train(nil, nil, nil, DefaultTrainOptions())
	if !core.IsInsufficientLabels(err) {
		t.Errorf("empty input must fail with the labels sentinel, got %v", err)
	}
	_, err = Train([][]float64{{1}}, []int{1}, []string{"x"}, DefaultTrainOptions())
	if !core.IsInsufficientLabels(err) {
		t.Errorf("single row must fail with the labels sentinel, got %v", err)
	}
}

func isCandidate(threshold float64) bool {
	for _, c := range thresholdCandidates {
		if threshold == c {
			return true
		}
	}
	return false
}
