// Package postgres persists run summaries and per-wave scores. Persistence
// is optional: the engine runs fully in memory when no database is
// configured.
package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"driftwatch/domain/core"
	"driftwatch/domain/risk"
	"driftwatch/internal/errors"
	"driftwatch/ports"
)

// RunRepositoryImpl implements RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// EnsureSchema creates the run tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			model_family TEXT NOT NULL,
			threshold DOUBLE PRECISION NOT NULL,
			used_fallback BOOLEAN NOT NULL,
			f2 DOUBLE PRECISION NOT NULL,
			pr_auc DOUBLE PRECISION NOT NULL,
			roc_auc DOUBLE PRECISION NOT NULL,
			rows INTEGER NOT NULL,
			persons INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return errors.StorageError("creating runs table", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS wave_scores (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			person_id TEXT NOT NULL,
			wave INTEGER NOT NULL,
			risk_prob DOUBLE PRECISION NOT NULL,
			risk_score DOUBLE PRECISION NOT NULL,
			risk_band TEXT NOT NULL,
			risk_category TEXT NOT NULL,
			explanation TEXT NOT NULL,
			follow_up TEXT NOT NULL,
			PRIMARY KEY (run_id, person_id, wave)
		)
	`)
	if err != nil {
		return errors.StorageError("creating wave_scores table", err)
	}
	return nil
}

// SaveRun stores one run summary.
func (r *RunRepositoryImpl) SaveRun(ctx context.Context, rec ports.RunRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, fingerprint, model_family, threshold, used_fallback, f2, pr_auc, roc_auc, rows, persons)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.ID, rec.Fingerprint, rec.ModelFamily, rec.Threshold, rec.UsedFallback,
		rec.Metrics.F2, rec.Metrics.PRAUC, rec.Metrics.ROCAUC, rec.Rows, rec.Persons)
	if err != nil {
		return errors.StorageError("saving run", err)
	}
	return nil
}

// SaveScores stores per-wave scores for one run, batched in a transaction.
func (r *RunRepositoryImpl) SaveScores(ctx context.Context, runID core.RunID, scores []risk.ScoredWave) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.StorageError("beginning score transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO wave_scores (run_id, person_id, wave, risk_prob, risk_score, risk_band, risk_category, explanation, follow_up)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return errors.StorageError("preparing score insert", err)
	}
	defer stmt.Close()

	for _, s := range scores {
		if _, err := stmt.ExecContext(ctx, runID, s.Person, s.Wave,
			s.Probability, s.Score, s.Band, s.Category, s.Explanation, s.FollowUp); err != nil {
			return errors.StorageError("inserting wave score", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.StorageError("committing wave scores", err)
	}
	return nil
}

// GetRun retrieves one run summary by id.
func (r *RunRepositoryImpl) GetRun(ctx context.Context, runID core.RunID) (*ports.RunRecord, error) {
	row := r.db.QueryRowxContext(ctx, `
		SELECT id, fingerprint, model_family, threshold, used_fallback, f2, pr_auc, roc_auc, rows, persons
		FROM runs
		WHERE id = $1
	`, runID)

	rec, err := scanRun(row)
	if err != nil {
		return nil, errors.StorageError("loading run", err)
	}
	return rec, nil
}

// ListRuns returns the most recent run summaries.
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]ports.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, fingerprint, model_family, threshold, used_fallback, f2, pr_auc, roc_auc, rows, persons
		FROM runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.StorageError("listing runs", err)
	}
	defer rows.Close()

	var out []ports.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, errors.StorageError("scanning run", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// GetScores returns per-wave scores for one run, person and wave ordered.
func (r *RunRepositoryImpl) GetScores(ctx context.Context, runID core.RunID, limit int) ([]risk.ScoredWave, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT person_id, wave, risk_prob, risk_score, risk_band, risk_category, explanation, follow_up
		FROM wave_scores
		WHERE run_id = $1
		ORDER BY person_id, wave
		LIMIT $2
	`, runID, limit)
	if err != nil {
		return nil, errors.StorageError("loading wave scores", err)
	}
	defer rows.Close()

	var out []risk.ScoredWave
	for rows.Next() {
		var s risk.ScoredWave
		if err := rows.Scan(&s.Person, &s.Wave, &s.Probability, &s.Score,
			&s.Band, &s.Category, &s.Explanation, &s.FollowUp); err != nil {
			return nil, errors.StorageError("scanning wave score", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*ports.RunRecord, error) {
	var rec ports.RunRecord
	err := row.Scan(&rec.ID, &rec.Fingerprint, &rec.ModelFamily, &rec.Threshold,
		&rec.UsedFallback, &rec.Metrics.F2, &rec.Metrics.PRAUC, &rec.Metrics.ROCAUC,
		&rec.Rows, &rec.Persons)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
