package explain

import (
	"math/rand"
	"strings"

	"driftwatch/domain/risk"
)

// focusSlot is the personalization placeholder a template may carry; it is
// replaced with the leading changed-variable name.
const focusSlot = "{focus}"

// defaultFocus fills the slot when no changed variable is available.
const defaultFocus = "health responses"

// templates by topic. Supportive tone only: no diagnosis, no treatment.
var templates = map[string][]string{
	"mood": {
		"We noticed some changes in your mood ratings recently. Would you like to share if anything stressful has been happening?",
		"Your recent responses suggest some shifts in how you've been feeling. Is there anything going on that you'd like to talk about?",
	},
	"stress": {
		"We noticed some changes in your stress levels lately. Would you like to share if anything has been weighing on you?",
		"It looks like stress might have increased recently. Would you like to share what's been on your mind?",
	},
	"life_events": {
		"We noticed some changes that sometimes go with life transitions (work, relationships, or stress). Would you like to share if anything has shifted recently?",
		"Your responses suggest things may have been different lately. Would you like to share if there have been any big changes or stresses we should know about?",
	},
	"sleep": {
		"We noticed some recent changes in your sleep pattern. Has anything been affecting your rest lately?",
		"Your sleep seems to have changed recently. Would you like to share if your routine or environment has changed?",
	},
	"activity": {
		"Your activity level has changed recently. Would you like to share if your routine has changed?",
		"We noticed some changes in your activity. Is there anything that has made it harder to stay active lately?",
	},
	"health_rating": {
		"We noticed some changes in how you've been rating your health recently. Would you like to share if anything has been different?",
		"Your recent health ratings have shifted a bit. Is there anything you'd like to share about how you've been feeling?",
	},
	"general": {
		"We noticed some changes in your recent " + focusSlot + ". Have there been any new stresses or lifestyle changes you'd like to share?",
		"Your responses have shown some changes lately. Would you like to share if anything has been going on?",
	},
}

// topicKeywords are checked per candidate name in this fixed priority.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"mood", []string{"mood"}},
	{"stress", []string{"stress"}},
	{"life_events", []string{"life_event"}},
	{"sleep", []string{"sleep"}},
	{"activity", []string{"activity"}},
	{"health_rating", []string{"health", "rating"}},
}

// PickFollowUp chooses one supportive follow-up question. Candidate names
// are scanned in priority order: magnitude-ranked main changes first, then
// remaining top model contributors. The template choice is seeded from the
// risk score so identical scores always yield identical questions.
func PickFollowUp(topContributors []string, category risk.Category, score float64, mainChanges []string) string {
	order := make([]string, 0, len(mainChanges)+len(topContributors))
	order = append(order, mainChanges...)
	for _, name := range topContributors {
		if !containsString(mainChanges, name) {
			order = append(order, name)
		}
	}

	topic := "general"
scan:
	for _, name := range order {
		lower := strings.ToLower(name)
		for _, tk := range topicKeywords {
			for _, kw := range tk.keywords {
				if strings.Contains(lower, kw) {
					topic = tk.topic
					break scan
				}
			}
		}
	}

	// Psycho-emotional drift with no keyword match: prefer the life-events
	// framing (work, relationships, stress).
	if topic == "general" && category == risk.CategoryPsycho {
		topic = "life_events"
	}

	options := templates[topic]
	rng := rand.New(rand.NewSource(scoreSeed(score)))
	choice := options[rng.Intn(len(options))]

	if strings.Contains(choice, focusSlot) {
		// Names arrive title-cased from the explainer; fall back to a
		// neutral phrase when nothing changed.
		focus := defaultFocus
		if len(order) > 0 {
			focus = order[0]
		}
		choice = strings.ReplaceAll(choice, focusSlot, focus)
	}
	return choice
}

// scoreSeed derives the deterministic rng seed: int(score*10) mod 2^32.
func scoreSeed(score float64) int64 {
	seed := int64(score * 10)
	const mod = int64(1) << 32
	seed %= mod
	if seed < 0 {
		seed += mod
	}
	return seed
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
