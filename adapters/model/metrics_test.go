package model

import (
	"math"
	"testing"
)

func TestFBeta_WeightsRecallOverPrecision(t *testing.T) {
	// Scenario: 3 of 4 positives caught with no false positives vs all 4
	// caught with 4 false positives. F2 must prefer the high-recall side.
	yTrue := []int{1, 1, 1, 1, 0, 0, 0, 0}

	conservative := []int{1, 1, 1, 0, 0, 0, 0, 0}
	aggressive := []int{1, 1, 1, 1, 1, 1, 1, 1}

	f2Cons := FBeta(yTrue, conservative, 2)
	f2Aggr := FBeta(yTrue, aggressive, 2)
	if f2Aggr <= f2Cons {
		t.Errorf("F2 should favor recall: aggressive %v <= conservative %v", f2Aggr, f2Cons)
	}

	// F1 disagrees on the same predictions, which is the point of beta.
	f1Cons := FBeta(yTrue, conservative, 1)
	f1Aggr := FBeta(yTrue, aggressive, 1)
	if f1Aggr >= f1Cons {
		t.Errorf("F1 should favor the conservative side here: %v >= %v", f1Aggr, f1Cons)
	}
}

func TestFBeta_ZeroDivisionDegeneratesToZero(t *testing.T) {
	if got := FBeta([]int{0, 0}, []int{0, 0}, 2); got != 0 {
		t.Errorf("no positives anywhere must yield 0, got %v", got)
	}
	if got := FBeta([]int{1, 1}, []int{0, 0}, 2); got != 0 {
		t.Errorf("no predicted positives must yield 0, got %v", got)
	}
}

func TestAveragePrecision_PerfectRanking(t *testing.T) {
	yTrue := []int{1, 1, 0, 0}
	probs := []float64{0.9, 0.8, 0.2, 0.1}
	if got := AveragePrecision(yTrue, probs); math.Abs(got-1) > 1e-12 {
		t.Errorf("perfect ranking must score 1, got %v", got)
	}
}

func TestAveragePrecision_NoPositivesIsZero(t *testing.T) {
	if got := AveragePrecision([]int{0, 0}, []float64{0.5, 0.5}); got != 0 {
		t.Errorf("expected 0 with no positives, got %v", got)
	}
}

func TestAveragePrecision_TiedScoresFormOneGroup(t *testing.T) {
	// All scores tied: AP degenerates to the positive prevalence.
	yTrue := []int{1, 0, 1, 0}
	probs := []float64{0.5, 0.5, 0.5, 0.5}
	if got := AveragePrecision(yTrue, probs); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("expected prevalence 0.5 for fully tied scores, got %v", got)
	}
}

func TestROCAUC_KnownOrderings(t *testing.T) {
	yTrue := []int{1, 1, 0, 0}

	if got := ROCAUC(yTrue, []float64{0.9, 0.8, 0.2, 0.1}); math.Abs(got-1) > 1e-12 {
		t.Errorf("perfect ranking must score 1, got %v", got)
	}
	if got := ROCAUC(yTrue, []float64{0.1, 0.2, 0.8, 0.9}); math.Abs(got-0) > 1e-12 {
		t.Errorf("inverted ranking must score 0, got %v", got)
	}
	if got := ROCAUC(yTrue, []float64{0.5, 0.5, 0.5, 0.5}); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("fully tied scores must score 0.5 via average ranks, got %v", got)
	}
}

func TestROCAUC_SingleClassIsZero(t *testing.T) {
	if got := ROCAUC([]int{1, 1}, []float64{0.4, 0.6}); got != 0 {
		t.Errorf("single-class input must degenerate to 0, got %v", got)
	}
}
