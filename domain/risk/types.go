package risk

import (
	"strings"

	"driftwatch/domain/core"
)

// Band is the coarse Low/Moderate/High bucket of a 0-100 risk score.
type Band string

const (
	BandLow      Band = "Low"
	BandModerate Band = "Moderate"
	BandHigh     Band = "High"
)

// Category is the dominant life domain driving a person's flagged deviations.
type Category string

const (
	CategoryPsycho    Category = "Psycho-emotional"
	CategoryMetabolic Category = "Metabolic"
	CategoryCardio    Category = "Cardiovascular"
)

// FeatureBaseline holds a person's early-history statistics for one feature.
// Std may be undefined (NaN) when the window held a single observation; a
// zero std is replaced by Epsilon upstream so later division stays defined.
type FeatureBaseline struct {
	Mean float64
	Std  float64
}

// Epsilon substitutes a zero baseline standard deviation.
const Epsilon = 1e-6

// BaselineTable holds one entry per qualifying person, persons kept in
// frame order for deterministic iteration.
type BaselineTable struct {
	persons  []core.PersonID
	byPerson map[core.PersonID]map[string]FeatureBaseline
}

// NewBaselineTable creates an empty baseline table.
func NewBaselineTable() *BaselineTable {
	return &BaselineTable{byPerson: make(map[core.PersonID]map[string]FeatureBaseline)}
}

// Put stores a person's baseline for one feature.
func (t *BaselineTable) Put(p core.PersonID, feature string, b FeatureBaseline) {
	if _, ok := t.byPerson[p]; !ok {
		t.byPerson[p] = make(map[string]FeatureBaseline)
		t.persons = append(t.persons, p)
	}
	t.byPerson[p][feature] = b
}

// Get returns a person's baseline for one feature.
func (t *BaselineTable) Get(p core.PersonID, feature string) (FeatureBaseline, bool) {
	feats, ok := t.byPerson[p]
	if !ok {
		return FeatureBaseline{}, false
	}
	b, ok := feats[feature]
	return b, ok
}

// Has reports whether a person has any baseline entry.
func (t *BaselineTable) Has(p core.PersonID) bool {
	_, ok := t.byPerson[p]
	return ok
}

// Persons returns persons with baselines, in insertion order.
func (t *BaselineTable) Persons() []core.PersonID {
	out := make([]core.PersonID, len(t.persons))
	copy(out, t.persons)
	return out
}

// Len returns the number of persons with baselines.
func (t *BaselineTable) Len() int {
	return len(t.persons)
}

// DomainGroups is the explicit feature-to-domain assignment consumed by the
// categorizer. It is resolved once at configuration time, never re-derived
// by string matching at scoring time.
type DomainGroups struct {
	Psycho    []string
	Metabolic []string
	Cardio    []string
}

// ResolveDomainGroups builds domain groups from the available columns.
// When explicitPsycho is non-empty it is taken verbatim as the
// psycho-emotional group while the other two domains still resolve by
// keyword. That asymmetry matches the upstream scoring behavior and is kept
// for parity.
func ResolveDomainGroups(columns []string, explicitPsycho []string) DomainGroups {
	g := DomainGroups{}
	if len(explicitPsycho) > 0 {
		g.Psycho = append(g.Psycho, explicitPsycho...)
	}
	for _, c := range columns {
		lc := strings.ToLower(c)
		if len(explicitPsycho) == 0 && (strings.Contains(lc, "mood") || strings.Contains(lc, "stress")) {
			g.Psycho = append(g.Psycho, c)
		}
		if strings.Contains(lc, "activity") || strings.Contains(lc, "bmi") {
			g.Metabolic = append(g.Metabolic, c)
		}
		if strings.Contains(lc, "bp") || strings.Contains(lc, "heart") || strings.Contains(lc, "cardio") {
			g.Cardio = append(g.Cardio, c)
		}
	}
	return g
}

// ModelMetrics carries the trainer's held-out evaluation results.
type ModelMetrics struct {
	F2     float64 `json:"f2"`
	PRAUC  float64 `json:"pr_auc"`
	ROCAUC float64 `json:"roc_auc"`
}

// ScoredWave is the per-(person, wave) output handed to the display layer.
type ScoredWave struct {
	Person      core.PersonID `json:"person_id"`
	Wave        int           `json:"wave"`
	Probability float64       `json:"risk_prob"`
	Score       float64       `json:"risk_score"`
	Band        Band          `json:"risk_band"`
	Category    Category      `json:"risk_category"`
	Explanation string        `json:"explanation"`
	FollowUp    string        `json:"follow_up"`
}

// GroupMetrics is one group's slice of a fairness report.
type GroupMetrics struct {
	F2     float64 `json:"f2"`
	PRAUC  float64 `json:"pr_auc"`
	ROCAUC float64 `json:"roc_auc"`
	N      int     `json:"n"`
}

// FairnessReport holds stratified evaluation metrics. Disparity is the
// max-min F2 gap across qualifying groups; HasDisparity is false when no
// group reached the minimum sample count.
type FairnessReport struct {
	Overall      GroupMetrics            `json:"overall"`
	ByGroup      map[string]GroupMetrics `json:"by_group"`
	Disparity    float64                 `json:"disparity"`
	HasDisparity bool                    `json:"has_disparity"`
}
