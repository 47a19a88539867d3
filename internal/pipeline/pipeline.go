// Package pipeline wires the analytical engine end to end: baselines,
// deviations, weak signals, leakage-safe training, model fitting, and
// per-wave scoring. The run is a single-threaded, synchronous batch over an
// in-memory table; every stochastic step is driven by the configured seed,
// so a run is bit-reproducible given the same input and configuration.
package pipeline

import (
	"sort"

	"driftwatch/adapters/model"
	"driftwatch/adapters/stats/baseline"
	"driftwatch/adapters/stats/noleakage"
	"driftwatch/adapters/stats/signals"
	"driftwatch/domain/core"
	"driftwatch/domain/risk"
	"driftwatch/domain/survey"
	"driftwatch/internal"
	"driftwatch/internal/config"
	"driftwatch/internal/errors"
	"driftwatch/internal/explain"
	"driftwatch/internal/fairness"
	"driftwatch/internal/scoring"
)

// maxModelColumns caps the classifier input width.
const maxModelColumns = 20

// maxContributors caps the ranked model-contributor list.
const maxContributors = 5

// Derived output column names appended to the frame.
const (
	ColRiskProb  = "risk_prob"
	ColRiskScore = "risk_score"
)

// Options parameterize one pipeline run.
type Options struct {
	Features        []string
	TargetColumn    string
	TargetThreshold float64

	MinWaves      int
	BaselineWaves int

	MovingAvgWindow  int
	SlopeWindow      int
	DeclineThreshold float64

	TestFraction float64
	ModelFamily  model.Family

	BandLowMax      float64
	BandModerateMax float64

	Seed               int64
	MinTrainingPersons int

	// Groups optionally carries one demographic label per frame row for the
	// fairness report. Labels never reach the classifier.
	Groups []string

	Logger *internal.Logger
}

// DefaultOptions match the documented configuration surface.
func DefaultOptions() Options {
	return Options{
		TargetThreshold:    2.5,
		MinWaves:           2,
		MovingAvgWindow:    signals.DefaultMovingAvgWindow,
		SlopeWindow:        4,
		DeclineThreshold:   config.DefaultDeclineThreshold,
		TestFraction:       0.2,
		ModelFamily:        model.FamilyLinear,
		BandLowMax:         scoring.DefaultLowMax,
		BandModerateMax:    scoring.DefaultModerateMax,
		Seed:               42,
		MinTrainingPersons: 10,
	}
}

// FromConfig maps the env-backed configuration onto run options.
func FromConfig(cfg config.EngineConfig, features []string, logger *internal.Logger) Options {
	return Options{
		Features:           features,
		TargetColumn:       cfg.TargetColumn,
		TargetThreshold:    cfg.TargetThreshold,
		MinWaves:           cfg.MinWaves,
		BaselineWaves:      cfg.BaselineWaves,
		MovingAvgWindow:    cfg.MovingAvgWindow,
		SlopeWindow:        cfg.SlopeWindow,
		DeclineThreshold:   cfg.DeclineThreshold,
		TestFraction:       cfg.TestFraction,
		ModelFamily:        model.Family(cfg.ModelFamily),
		BandLowMax:         cfg.BandLowMax,
		BandModerateMax:    cfg.BandModerateMax,
		Seed:               cfg.Seed,
		MinTrainingPersons: cfg.MinTrainingPersons,
		Logger:             internal.DefaultLogger,
	}
}

// Result is everything a run hands to the display layer: the widened wave
// table, the run-scoped model artifact, per-wave scored output, and the
// per-record scoring function's state.
type Result struct {
	RunID       core.RunID
	Fingerprint core.SnapshotHash

	Frame     *survey.Frame
	Baselines *risk.BaselineTable

	Trained      *model.Trained
	UsedFallback bool

	Scored          []risk.ScoredWave
	TopContributors []string
	Fairness        *risk.FairnessReport

	groups   risk.DomainGroups
	features []string
	opts     Options
}

// Run executes the full pipeline on one input snapshot.
func Run(f *survey.Frame, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}

	features := resolveFeatures(f, opts.Features)
	if len(features) == 0 {
		return nil, core.NewMissingDataError("no qualifying feature columns after cleaning")
	}
	targetColumn := opts.TargetColumn
	if targetColumn == "" {
		targetColumn = features[0]
	}

	result := &Result{
		RunID:       core.RunID(core.NewID()),
		Fingerprint: f.Fingerprint(),
		Frame:       f,
		features:    features,
		opts:        opts,
	}
	logger.Info("run %s: %d rows, %d persons, %d features, snapshot %.12s",
		result.RunID, f.Len(), len(f.Persons()), len(features), result.Fingerprint)

	// Baselines and per-wave deviations.
	result.Baselines = baseline.Build(f, features, baseline.Options{
		MinWaves:      opts.MinWaves,
		BaselineWaves: opts.BaselineWaves,
	})
	if err := baseline.AttachDeviations(f, result.Baselines, features); err != nil {
		return nil, errors.Wrap(err, "attaching deviations")
	}

	// Weak signals.
	if err := signals.AttachMovingAverage(f, features, opts.MovingAvgWindow); err != nil {
		return nil, errors.Wrap(err, "attaching moving averages")
	}
	if err := signals.AttachTrendSlope(f, features, opts.SlopeWindow); err != nil {
		return nil, errors.Wrap(err, "attaching trend slopes")
	}
	if err := signals.FlagDeclining(f, features, opts.DeclineThreshold); err != nil {
		return nil, errors.Wrap(err, "flagging declines")
	}

	// Leakage-safe training set, with the documented row-level fallback.
	trainSet, err := noleakage.Build(f, features, noleakage.Options{
		TargetColumn:     targetColumn,
		TargetThreshold:  opts.TargetThreshold,
		DeclineThreshold: config.NoLeakageDeclineThreshold,
	})
	if err != nil {
		return nil, errors.Wrap(err, "building leakage-safe training set")
	}

	var modelColumns []string
	var X [][]float64
	var y []int
	var trainPersons []core.PersonID

	if trainSet.Len() < opts.MinTrainingPersons {
		logger.Warn("run %s: only %d leakage-safe persons (<%d), falling back to row-level labels; leakage-guarantee coverage reduced",
			result.RunID, trainSet.Len(), opts.MinTrainingPersons)
		result.UsedFallback = true

		fallback := noleakage.BuildFallback(f, features, targetColumn, opts.TargetThreshold)
		modelColumns = selectModelColumns(f.Columns())
		X = frameMatrix(f, modelColumns)
		y = fallback.Y
		trainPersons = fallback.Persons
	} else {
		modelColumns = capColumns(trainSet.Columns)
		X = setMatrix(trainSet, modelColumns)
		y = trainSet.Y
		trainPersons = trainSet.Persons
	}
	if len(modelColumns) == 0 {
		return nil, core.NewMissingDataError("no derived model columns available")
	}

	trained, err := model.Train(X, y, modelColumns, model.TrainOptions{
		Family:       opts.ModelFamily,
		TestFraction: opts.TestFraction,
		Seed:         opts.Seed,
	})
	if err != nil {
		return nil, errors.TrainingFailed("risk model training failed", err)
	}
	result.Trained = trained
	logger.Info("run %s: trained %s model, threshold %.2f, F2 %.3f, PR-AUC %.3f, ROC-AUC %.3f",
		result.RunID, opts.ModelFamily, trained.Threshold, trained.Metrics.F2, trained.Metrics.PRAUC, trained.Metrics.ROCAUC)

	result.TopContributors = topContributors(trained, modelColumns)

	// Domain groups resolve once here, not per scored row. The tracked
	// feature list doubles as the psycho-emotional group when supplied.
	result.groups = risk.ResolveDomainGroups(f.Columns(), features)

	// Score the full wave table, leakage-derived display columns included;
	// the model itself was fitted on the leakage-safe set only.
	if err := result.scoreFrame(); err != nil {
		return nil, err
	}

	if len(opts.Groups) == f.Len() {
		result.Fairness = evaluateFairness(trained, trainPersons, opts.Groups, f)
	}

	return result, nil
}

// scoreFrame scores every wave row and appends probability and score
// columns to the frame.
func (r *Result) scoreFrame() error {
	f := r.Frame
	probCol := f.NewColumn()
	scoreCol := f.NewColumn()

	r.Scored = make([]risk.ScoredWave, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		rec := f.Record(i)
		sw := r.scoreRecord(rec)
		probCol[i] = sw.Probability
		scoreCol[i] = sw.Score
		r.Scored = append(r.Scored, sw)
	}

	if err := f.AddColumn(ColRiskProb, probCol); err != nil {
		return errors.Wrap(err, "adding probability column")
	}
	if err := f.AddColumn(ColRiskScore, scoreCol); err != nil {
		return errors.Wrap(err, "adding score column")
	}
	return nil
}

// ScoreRecord scores one wave record with the run's model artifact:
// probability mapped to 0-100, band, dominant category, explanation text,
// and a reproducible follow-up question.
func (r *Result) ScoreRecord(rec survey.Record) risk.ScoredWave {
	return r.scoreRecord(rec)
}

func (r *Result) scoreRecord(rec survey.Record) risk.ScoredWave {
	row := make([]float64, len(r.Trained.Columns))
	for j, col := range r.Trained.Columns {
		// Missing fills to 0 here and only here: the designated boundary
		// between undefined statistics and classifier input.
		if v := rec.Value(col); !survey.IsMissing(v) {
			row[j] = v
		}
	}
	prob := r.Trained.PredictProbaRow(row)
	score := scoring.Score(prob)
	band := scoring.BandFor(score, r.opts.BandLowMax, r.opts.BandModerateMax)
	category := scoring.Categorize(rec, r.groups)

	changes := explain.Changes(rec)
	mainChanges := explain.MainChangeNames(rec)

	return risk.ScoredWave{
		Person:      rec.Person,
		Wave:        rec.Wave,
		Probability: prob,
		Score:       score,
		Band:        band,
		Category:    category,
		Explanation: explain.ExplanationText(changes),
		FollowUp:    explain.PickFollowUp(r.TopContributors, category, score, mainChanges),
	}
}

// resolveFeatures keeps the configured features present in the frame, or
// infers up to eight numeric columns when none were configured.
func resolveFeatures(f *survey.Frame, configured []string) []string {
	if len(configured) > 0 {
		out := make([]string, 0, len(configured))
		for _, c := range configured {
			if f.HasColumn(c) {
				out = append(out, c)
			}
		}
		return out
	}
	cols := f.Columns()
	if len(cols) > 8 {
		cols = cols[:8]
	}
	return cols
}

// selectModelColumns picks classifier-eligible derived columns from the
// widened frame, in column order, capped.
func selectModelColumns(cols []string) []string {
	out := make([]string, 0, maxModelColumns)
	for _, c := range cols {
		if risk.IsModelColumn(c) {
			out = append(out, c)
			if len(out) == maxModelColumns {
				break
			}
		}
	}
	return out
}

func capColumns(cols []string) []string {
	if len(cols) > maxModelColumns {
		cols = cols[:maxModelColumns]
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// frameMatrix extracts rows for the given columns, missing filled with 0 at
// this classifier boundary.
func frameMatrix(f *survey.Frame, cols []string) [][]float64 {
	X := make([][]float64, f.Len())
	for i := range X {
		row := make([]float64, len(cols))
		for j, c := range cols {
			if v, ok := f.Value(i, c); ok && !survey.IsMissing(v) {
				row[j] = v
			}
		}
		X[i] = row
	}
	return X
}

// setMatrix projects the training set onto the capped column list,
// missing filled with 0 at this classifier boundary.
func setMatrix(set *noleakage.TrainingSet, cols []string) [][]float64 {
	colIndex := make(map[string]int, len(set.Columns))
	for j, c := range set.Columns {
		colIndex[c] = j
	}
	X := make([][]float64, len(set.X))
	for i, src := range set.X {
		row := make([]float64, len(cols))
		for j, c := range cols {
			if k, ok := colIndex[c]; ok && !survey.IsMissing(src[k]) {
				row[j] = src[k]
			}
		}
		X[i] = row
	}
	return X
}

// topContributors ranks model columns by feature importance, descending.
func topContributors(trained *model.Trained, cols []string) []string {
	imps := trained.Model.FeatureImportances()
	order := make([]int, len(imps))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return imps[order[a]] > imps[order[b]] })

	n := maxContributors
	if n > len(order) {
		n = len(order)
	}
	out := make([]string, 0, n)
	for _, i := range order[:n] {
		out = append(out, cols[i])
	}
	return out
}

// evaluateFairness maps the model's held-out split back to demographic
// groups and computes the stratified report.
func evaluateFairness(trained *model.Trained, trainPersons []core.PersonID, groups []string, f *survey.Frame) *risk.FairnessReport {
	// First non-empty group label per person.
	personGroup := make(map[core.PersonID]string)
	for i := 0; i < f.Len(); i++ {
		p := f.PersonAt(i)
		if _, ok := personGroup[p]; !ok && groups[i] != "" {
			personGroup[p] = groups[i]
		}
	}

	yPred := make([]int, len(trained.TestProbs))
	testGroups := make([]string, len(trained.TestIndices))
	for k, idx := range trained.TestIndices {
		yPred[k] = trained.Predict(trained.TestProbs[k])
		if idx < len(trainPersons) {
			testGroups[k] = personGroup[trainPersons[idx]]
		}
	}

	report := fairness.Evaluate(trained.TestLabels, yPred, trained.TestProbs, testGroups)
	return &report
}
