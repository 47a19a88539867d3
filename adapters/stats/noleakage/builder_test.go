package noleakage

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

func TestBuild_LabelFromLastWaveFeaturesFromPast(t *testing.T) {
	// Scenario: three waves 4.0, 3.8, 2.0. The label must come from the last
	// wave only (2.0 < 2.5 -> 1) and every feature from the two past waves.
	f := frameOf(t, []string{"health"}, []testkit.TestRow{
		{Person: "a", Wave: 0, Values: []float64{4.0}},
		{Person: "a", Wave: 1, Values: []float64{3.8}},
		{Person: "a", Wave: 2, Values: []float64{2.0}},
	})

	set, err := Build(f, []string{"health"}, DefaultOptions("health"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("expected 1 training row, got %d", set.Len())
	}
	if set.Y[0] != 1 {
		t.Errorf("last-wave value 2.0 below 2.5 must label 1, got %d", set.Y[0])
	}

	// Past window {4.0, 3.8}: mean 3.9, current = 3.8 (last PAST wave).
	row := set.X[0]
	dev := row[0]
	if math.Abs(dev-(-0.1)) > 1e-9 {
		t.Errorf("expected deviation -0.1 from past mean 3.9, got %v", dev)
	}

	// Population std of {4.0, 3.8} is 0.1.
	z := row[2]
	if math.Abs(z-(-1)) > 1e-6 {
		t.Errorf("expected z -1, got %v", z)
	}

	// Slope over {4.0, 3.8} is -0.2, below the -0.05 cutoff.
	if row[4] != 1 {
		t.Errorf("expected decline flag 1, got %v", row[4])
	}
}

func TestBuild_MutatingLabelWaveNeverChangesFeatures(t *testing.T) {
	// The anti-leakage property: features must be a function of past waves
	// only, so any change to the label wave leaves them untouched.
	build := func(lastVal float64) []float64 {
		f := frameOf(t, []string{"health"}, []testkit.TestRow{
			{Person: "a", Wave: 0, Values: []float64{4.0}},
			{Person: "a", Wave: 1, Values: []float64{3.8}},
			{Person: "a", Wave: 2, Values: []float64{lastVal}},
		})
		set, err := Build(f, []string{"health"}, DefaultOptions("health"))
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if set.Len() != 1 {
			t.Fatalf("expected 1 training row, got %d", set.Len())
		}
		return set.X[0]
	}

	low := build(1.0)
	high := build(5.0)
	for j := range low {
		if low[j] != high[j] {
			t.Errorf("feature %d changed with the label wave: %v vs %v", j, low[j], high[j])
		}
	}
}

func TestBuild_RequiresThreeWavesAndObservedLabel(t *testing.T) {
	f := frameOf(t, []string{"health"}, []testkit.TestRow{
		{Person: "short", Wave: 0, Values: []float64{4}},
		{Person: "short", Wave: 1, Values: []float64{3}},
		{Person: "nolabel", Wave: 0, Values: []float64{4}},
		{Person: "nolabel", Wave: 1, Values: []float64{3}},
		{Person: "nolabel", Wave: 2, Values: []float64{survey.Missing()}},
		{Person: "ok", Wave: 0, Values: []float64{4}},
		{Person: "ok", Wave: 1, Values: []float64{3}},
		{Person: "ok", Wave: 2, Values: []float64{3}},
	})

	set, err := Build(f, []string{"health"}, DefaultOptions("health"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("expected only the qualifying person, got %d rows", set.Len())
	}
	if set.Persons[0] != "ok" {
		t.Errorf("expected person ok, got %s", set.Persons[0])
	}
	if set.Y[0] != 0 {
		t.Errorf("last-wave 3.0 above 2.5 must label 0, got %d", set.Y[0])
	}
}

func TestBuild_EntirelyMissingPastWindowPropagatesMissing(t *testing.T) {
	f := frameOf(t, []string{"health", "sparse"}, []testkit.TestRow{
		{Person: "a", Wave: 0, Values: []float64{4, survey.Missing()}},
		{Person: "a", Wave: 1, Values: []float64{3.8, survey.Missing()}},
		{Person: "a", Wave: 2, Values: []float64{2, 1}},
	})

	set, err := Build(f, []string{"health", "sparse"}, DefaultOptions("health"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("expected 1 row, got %d", set.Len())
	}
	row := set.X[0]
	// Columns 5-9 belong to "sparse"; its past window was entirely missing.
	for j := 5; j < 10; j++ {
		if !survey.IsMissing(row[j]) {
			t.Errorf("sparse feature %d should be missing, got %v", j, row[j])
		}
	}
	// The observed last-wave 1.0 for sparse must not leak into features.
}

func TestBuild_ColumnsListFiveDerivedPerFeature(t *testing.T) {
	f := frameOf(t, []string{"health", "stress"}, []testkit.TestRow{
		{Person: "a", Wave: 0, Values: []float64{4, 2}},
		{Person: "a", Wave: 1, Values: []float64{3, 2}},
		{Person: "a", Wave: 2, Values: []float64{3, 2}},
	})

	set, err := Build(f, []string{"health", "stress"}, DefaultOptions("health"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(set.Columns) != 10 {
		t.Fatalf("expected 10 columns, got %d", len(set.Columns))
	}
	if set.Columns[0] != risk.DeviationCol("health") || set.Columns[5] != risk.DeviationCol("stress") {
		t.Errorf("unexpected column order: %v", set.Columns)
	}
	if len(set.X[0]) != len(set.Columns) {
		t.Errorf("row width %d does not match columns %d", len(set.X[0]), len(set.Columns))
	}
}

func TestBuildFallback_RowLevelLabelsFromLastObservedTarget(t *testing.T) {
	// Scenario: person a's last observed target is missing at wave 2, so the
	// label comes from wave 1 (2.0 -> 1) and is broadcast to every row.
	f := frameOf(t, []string{"health"}, []testkit.TestRow{
		{Person: "a", Wave: 0, Values: []float64{4.0}},
		{Person: "a", Wave: 1, Values: []float64{2.0}},
		{Person: "a", Wave: 2, Values: []float64{survey.Missing()}},
		{Person: "b", Wave: 0, Values: []float64{4.0}},
		{Person: "b", Wave: 1, Values: []float64{4.0}},
	})

	set := BuildFallback(f, []string{"health"}, "health", 2.5)
	if !set.Fallback {
		t.Error("fallback set must be marked")
	}
	if set.Len() != f.Len() {
		t.Fatalf("fallback is row-level: expected %d rows, got %d", f.Len(), set.Len())
	}
	for i := 0; i < 3; i++ {
		if set.Y[i] != 1 {
			t.Errorf("person a row %d: expected label 1, got %d", i, set.Y[i])
		}
	}
	for i := 3; i < 5; i++ {
		if set.Y[i] != 0 {
			t.Errorf("person b row %d: expected label 0, got %d", i, set.Y[i])
		}
	}
}
