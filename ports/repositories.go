// Package ports declares the persistence interfaces the application core
// depends on, keeping storage adapters swappable.
package ports

import (
	"context"

	"driftwatch/domain/core"
	"driftwatch/domain/risk"
)

// RunRecord is a persisted run summary.
type RunRecord struct {
	ID           core.RunID        `db:"id"`
	Fingerprint  string            `db:"fingerprint"`
	ModelFamily  string            `db:"model_family"`
	Threshold    float64           `db:"threshold"`
	UsedFallback bool              `db:"used_fallback"`
	Metrics      risk.ModelMetrics `db:"-"`
	Rows         int               `db:"rows"`
	Persons      int               `db:"persons"`
}

// RunRepository persists run summaries and per-wave scores.
type RunRepository interface {
	SaveRun(ctx context.Context, rec RunRecord) error
	SaveScores(ctx context.Context, runID core.RunID, scores []risk.ScoredWave) error
	GetRun(ctx context.Context, runID core.RunID) (*RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	GetScores(ctx context.Context, runID core.RunID, limit int) ([]risk.ScoredWave, error)
}
