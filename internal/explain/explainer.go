// Package explain turns derived deviations into ranked plain-language
// statements and picks a matching, reproducible follow-up question.
package explain

import (
	"fmt"
	"sort"
	"strings"

	"driftwatch/domain/risk"
	"driftwatch/domain/survey"
)

// maxStatements caps both the explanation sentences and the ranked change
// names fed into follow-up selection.
const maxStatements = 5

// Changes builds one sentence per changed variable, combining the absolute
// deviation and percent change when both exist. Groups are emitted in
// column-encounter order, NOT by magnitude; ranking by magnitude is
// MainChangeNames' job and the two orderings are intentionally different.
func Changes(rec survey.Record) []string {
	type pair struct {
		dev    float64
		pct    float64
		hasDev bool
		hasPct bool
	}
	byName := make(map[string]*pair)
	var order []string

	for _, col := range rec.Columns {
		if !risk.IsChangeColumn(col) {
			continue
		}
		v, ok := rec.Values[col]
		if !ok || survey.IsMissing(v) {
			continue
		}
		name := DisplayName(col)
		entry, seen := byName[name]
		if !seen {
			entry = &pair{}
			byName[name] = entry
			order = append(order, name)
		}
		if strings.Contains(col, risk.SuffixPctChange) {
			entry.pct, entry.hasPct = v, true
		} else {
			entry.dev, entry.hasDev = v, true
		}
	}

	out := make([]string, 0, len(order))
	for _, name := range order {
		entry := byName[name]
		switch {
		case entry.hasDev && entry.hasPct:
			devStr := "0.00"
			if entry.dev != 0 {
				devStr = fmt.Sprintf("%+.2f", entry.dev)
			}
			pctStr := "0.0%"
			if entry.pct != 0 {
				pctStr = fmt.Sprintf("%+.1f%%", entry.pct)
			}
			out = append(out, fmt.Sprintf("%s: %s (%s)", name, devStr, pctStr))
		case entry.hasPct:
			if entry.pct > 0 {
				out = append(out, fmt.Sprintf("%s increased %.1f%%", name, entry.pct))
			} else {
				out = append(out, fmt.Sprintf("%s decreased %.1f%%", name, -entry.pct))
			}
		case entry.hasDev:
			if entry.dev > 0 {
				out = append(out, fmt.Sprintf("%s increased %.2f", name, entry.dev))
			} else {
				out = append(out, fmt.Sprintf("%s decreased %.2f", name, -entry.dev))
			}
		}
	}
	if len(out) > maxStatements {
		out = out[:maxStatements]
	}
	return out
}

// MainChangeNames returns changed-variable display names sorted by the
// maximum absolute magnitude observed per variable, biggest first. This
// ranking drives follow-up topic selection so the question matches the
// dominant driver even though the explanation text keeps column order.
func MainChangeNames(rec survey.Record) []string {
	byName := make(map[string]float64)
	var order []string

	for _, col := range rec.Columns {
		if !risk.IsChangeColumn(col) {
			continue
		}
		v, ok := rec.Values[col]
		if !ok || survey.IsMissing(v) {
			continue
		}
		name := DisplayName(col)
		mag := v
		if mag < 0 {
			mag = -mag
		}
		if prev, seen := byName[name]; !seen {
			byName[name] = mag
			order = append(order, name)
		} else if mag > prev {
			byName[name] = mag
		}
	}

	sort.SliceStable(order, func(a, b int) bool { return byName[order[a]] > byName[order[b]] })
	if len(order) > maxStatements {
		order = order[:maxStatements]
	}
	return order
}

// ExplanationText joins change sentences into one user-facing paragraph.
func ExplanationText(changes []string) string {
	main := "No strong deviations from your baseline."
	if len(changes) > 0 {
		main = strings.Join(changes, "; ")
	}
	return "Main changes we observed: " + main
}

// DisplayName converts a derived column into a human-readable variable
// name: suffix stripped, underscores to spaces, title-cased.
func DisplayName(col string) string {
	base := strings.TrimSpace(strings.ReplaceAll(risk.BaseFeature(col), "_", " "))
	words := strings.Fields(base)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
