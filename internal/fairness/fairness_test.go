package fairness

import (
	"math"
	"testing"
)

// twoGroupFixture builds 24 samples: group a is predicted perfectly, group b
// entirely missed.
func twoGroupFixture() (yTrue, yPred []int, probs []float64, groups []string) {
	for i := 0; i < 12; i++ {
		label := i % 2
		yTrue = append(yTrue, label)
		yPred = append(yPred, label)
		probs = append(probs, float64(label))
		groups = append(groups, "a")
	}
	for i := 0; i < 12; i++ {
		label := i % 2
		yTrue = append(yTrue, label)
		yPred = append(yPred, 0)
		probs = append(probs, 0.5)
		groups = append(groups, "b")
	}
	return
}

func TestEvaluate_PerGroupMetricsAndDisparity(t *testing.T) {
	yTrue, yPred, probs, groups := twoGroupFixture()

	report := Evaluate(yTrue, yPred, probs, groups)

	a, ok := report.ByGroup["a"]
	if !ok {
		t.Fatal("group a missing from report")
	}
	if math.Abs(a.F2-1) > 1e-12 {
		t.Errorf("group a is predicted perfectly, F2 %v", a.F2)
	}
	b := report.ByGroup["b"]
	if b.F2 != 0 {
		t.Errorf("group b has no true positives, F2 %v", b.F2)
	}

	if !report.HasDisparity {
		t.Error("expected a disparity with two qualifying groups")
	}
	if math.Abs(report.Disparity-1) > 1e-12 {
		t.Errorf("expected max-min F2 gap 1, got %v", report.Disparity)
	}
	if a.N != 12 || b.N != 12 {
		t.Errorf("unexpected group sizes: %d, %d", a.N, b.N)
	}
}

func TestEvaluate_SmallGroupsDropped(t *testing.T) {
	yTrue := []int{1, 0, 1, 0}
	yPred := []int{1, 0, 0, 0}
	probs := []float64{0.9, 0.1, 0.4, 0.2}
	groups := []string{"tiny", "tiny", "tiny", "tiny"}

	report := Evaluate(yTrue, yPred, probs, groups)
	if len(report.ByGroup) != 0 {
		t.Errorf("groups below the sample floor must be dropped, got %v", report.ByGroup)
	}
	if report.HasDisparity {
		t.Error("no qualifying groups means no disparity statement")
	}
	// Overall metrics still computed.
	if report.Overall.N != 4 {
		t.Errorf("expected overall n 4, got %d", report.Overall.N)
	}
}

func TestEvaluate_EmptyGroupLabelsSkipped(t *testing.T) {
	yTrue, yPred, probs, groups := twoGroupFixture()
	for i := range groups {
		if groups[i] == "b" {
			groups[i] = ""
		}
	}

	report := Evaluate(yTrue, yPred, probs, groups)
	if _, ok := report.ByGroup[""]; ok {
		t.Error("empty group label must not form a group")
	}
	if len(report.ByGroup) != 1 {
		t.Errorf("expected only group a, got %v", report.ByGroup)
	}
	if report.Disparity != 0 {
		t.Errorf("single group has zero disparity, got %v", report.Disparity)
	}
}

func TestEvaluate_LengthMismatchYieldsOverallOnly(t *testing.T) {
	report := Evaluate([]int{1, 0}, []int{1, 0}, []float64{0.9, 0.1}, []string{"a"})
	if len(report.ByGroup) != 0 {
		t.Error("mismatched group labels must not be attributed")
	}
	if report.Overall.F2 == 0 {
		t.Error("overall metrics must still be computed")
	}
}
