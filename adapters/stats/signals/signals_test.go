package signals

import (
	"math"
	"testing"

	"driftwatch/domain/risk"
	"driftwatch/domain/survey"
	"driftwatch/internal/testkit"
)

func frameOf(t *testing.T, features []string, rows []testkit.TestRow) *survey.Frame {
	t.Helper()
	f, err := testkit.SmallFrame(features, rows)
	if err != nil {
		t.Fatalf("building frame: %v", err)
	}
	return f
}

func TestAttachMovingAverage_PartialWindowsFromFirstWave(t *testing.T) {
	f := frameOf(t, []string{"mood"}, []testkit.TestRow{
		{Person: "a", Wave: 0, Values: []float64{2}},
		{Person: "a", Wave: 1, Values: []float64{4}},
		{Person: "a", Wave: 2, Values: []float64{6}},
	})

	if err := AttachMovingAverage(f, []string{"mood"}, 3); err != nil {
		t.Fatalf("AttachMovingAverage failed: %v", err)
	}

	wantMA := []float64{2, 3, 4} // 2; (2+4)/2; (2+4+6)/3
	for i, want := range wantMA {
		got, _ := f.Value(i, risk.MovingAvgCol("mood"))
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("row %d: expected ma %v, got %v", i, want, got)
		}
	}

	change, _ := f.Value(2, risk.MAChangeCol("mood"))
	if math.Abs(change-2) > 1e-12 {
		t.Errorf("expected ma_change 2 at last wave, got %v", change)
	}
}

func TestAttachMovingAverage_SkipsMissingValuesInWindow(t *testing.T) {
	f := frameOf(t, []string{"mood"}, []testkit.TestRow{
		{Person: "a", Wave: 0, Values: []float64{2}},
		{Person: "a", Wave: 1, Values: []float64{survey.Missing()}},
		{Person: "a", Wave: 2, Values: []float64{6}},
	})

	if err := AttachMovingAverage(f, []string{"mood"}, 3); err != nil {
		t.Fatal(err)
	}

	// Window over waves 0-2 holds {2, 6}.
	got, _ := f.Value(2, risk.MovingAvgCol("mood"))
	if got != 4 {
		t.Errorf("expected ma 4 over non-missing values, got %v", got)
	}
}

func TestAttachTrendSlope_RecoversKnownLine(t *testing.T) {
	// Scenario: a perfectly linear decline of -0.5 per wave.
	f := frameOf(t, []string{"mood"}, []testkit.TestRow{
		{Person: "a", Wave: 0, Values: []float64{5.0}},
		{Person: "a", Wave: 1, Values: []float64{4.5}},
		{Person: "a", Wave: 2, Values: []float64{4.0}},
		{Person: "a", Wave: 3, Values: []float64{3.5}},
	})

	if err := AttachTrendSlope(f, []string{"mood"}, 4); err != nil {
		t.Fatalf("AttachTrendSlope failed: %v", err)
	}

	// Slope is stored against the window's last wave only.
	slope, _ := f.Value(3, risk.SlopeCol("mood"))
	if math.Abs(slope-(-0.5)) > 1e-9 {
		t.Errorf("expected slope -0.5, got %v", slope)
	}
	earlier, _ := f.Value(1, risk.SlopeCol("mood"))
	if !survey.IsMissing(earlier) {
		t.Errorf("expected missing slope before the window's last wave, got %v", earlier)
	}
}

func TestAttachTrendSlope_ImputesMissingWithWindowMean(t *testing.T) {
	f := frameOf(t, []string{"mood"}, []testkit.TestRow{
		{Person: "a", Wave: 0, Values: []float64{4}},
		{Person: "a", Wave: 1, Values: []float64{survey.Missing()}},
		{Person: "a", Wave: 2, Values: []float64{2}},
	})

	if err := AttachTrendSlope(f, []string{"mood"}, 4); err != nil {
		t.Fatal(err)
	}

	// Window mean of {4, 2} is 3; fitting {4, 3, 2} gives slope -1.
	slope, _ := f.Value(2, risk.SlopeCol("mood"))
	if math.Abs(slope-(-1)) > 1e-9 {
		t.Errorf("expected slope -1 after mean imputation, got %v", slope)
	}
}

func TestAttachTrendSlope_RequiresTwoWaves(t *testing.T) {
	f := frameOf(t, []string{"mood"}, []testkit.TestRow{
		{Person: "solo", Wave: 0, Values: []float64{4}},
	})

	if err := AttachTrendSlope(f, []string{"mood"}, 4); err != nil {
		t.Fatal(err)
	}
	slope, ok := f.Value(0, risk.SlopeCol("mood"))
	if !ok {
		t.Fatal("slope column should exist even when no person qualifies")
	}
	if !survey.IsMissing(slope) {
		t.Errorf("expected missing slope for single-wave person, got %v", slope)
	}
}

func TestFlagDeclining_ThresholdAndMissingPropagation(t *testing.T) {
	f := frameOf(t, []string{"mood"}, []testkit.TestRow{
		{Person: "down", Wave: 0, Values: []float64{5}},
		{Person: "down", Wave: 1, Values: []float64{4}},
		{Person: "flat", Wave: 0, Values: []float64{3}},
		{Person: "flat", Wave: 1, Values: []float64{3}},
	})

	if err := AttachTrendSlope(f, []string{"mood"}, 4); err != nil {
		t.Fatal(err)
	}
	if err := FlagDeclining(f, []string{"mood"}, -0.1); err != nil {
		t.Fatal(err)
	}

	flags := f.Column(risk.DecliningCol("mood"))
	if flags[1] != 1 {
		t.Errorf("slope -1 below -0.1 must flag, got %v", flags[1])
	}
	if flags[3] != 0 {
		t.Errorf("flat slope must not flag, got %v", flags[3])
	}
	// First wave of each person carries no slope, so no flag either.
	if !survey.IsMissing(flags[0]) {
		t.Errorf("missing slope must leave the flag missing, got %v", flags[0])
	}
}
