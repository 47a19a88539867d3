package explain

import (
	"strings"
	"testing"

	"driftwatch/domain/risk"
)

func TestPickFollowUp_TopicFromMainChangesFirst(t *testing.T) {
	// Main changes outrank model contributors in topic selection.
	q := PickFollowUp([]string{"activity_level_slope"}, risk.CategoryMetabolic, 40, []string{"Stress Level"})
	if !strings.Contains(strings.ToLower(q), "stress") {
		t.Errorf("expected a stress question, got %q", q)
	}
}

func TestPickFollowUp_FallsBackToContributors(t *testing.T) {
	q := PickFollowUp([]string{"sleep_hours_z"}, risk.CategoryMetabolic, 40, nil)
	if !strings.Contains(strings.ToLower(q), "sleep") {
		t.Errorf("expected a sleep question, got %q", q)
	}
}

func TestPickFollowUp_PsychoWithoutKeywordUsesLifeEvents(t *testing.T) {
	q := PickFollowUp([]string{"bmi_deviation"}, risk.CategoryPsycho, 40, nil)
	found := false
	for _, tpl := range templates["life_events"] {
		if q == tpl {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a life-events question, got %q", q)
	}
}

func TestPickFollowUp_IdenticalScoreIdenticalQuestion(t *testing.T) {
	// The template rng is seeded from the score: same inputs, same question,
	// every time.
	contributors := []string{"health_rating_deviation"}
	first := PickFollowUp(contributors, risk.CategoryMetabolic, 73.4, nil)
	for i := 0; i < 10; i++ {
		if got := PickFollowUp(contributors, risk.CategoryMetabolic, 73.4, nil); got != first {
			t.Fatalf("question changed on repeat call: %q vs %q", got, first)
		}
	}
}

func TestPickFollowUp_FocusSlotFilled(t *testing.T) {
	// No keyword match and a non-psycho category selects the general topic;
	// when the chosen template carries the focus slot it must be filled.
	for _, mainChanges := range [][]string{nil, {"Bmi"}} {
		for score := 0.0; score < 3; score++ {
			q := PickFollowUp(nil, risk.CategoryMetabolic, score, mainChanges)
			if strings.Contains(q, "{focus}") {
				t.Errorf("focus slot left unfilled: %q", q)
			}
		}
	}
}

func TestPickFollowUp_TopicPriorityOrder(t *testing.T) {
	// Mood outranks stress when both appear among the candidates.
	q := PickFollowUp(nil, risk.CategoryMetabolic, 40, []string{"Mood Score", "Stress Level"})
	if !strings.Contains(strings.ToLower(q), "mood") && !strings.Contains(q, "feeling") {
		t.Errorf("expected a mood question, got %q", q)
	}
}
