// Package telemetry persists anonymised verdicts for aggregate statistics.
//
// Only the feature set and requirement flags of a verdict are stored, keyed
// by attempt id. Pointer coordinates never reach this package.
package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/motion.check/internal/motion/classify"
	"github.com/banshee-data/motion.check/internal/motion/features"
	"github.com/banshee-data/motion.check/internal/timeutil"
)

// Store is the verdict database.
type Store struct {
	*sql.DB
	path  string
	clock timeutil.Clock
}

// Option customises a Store.
type Option func(*Store)

// WithClock sets the clock used to timestamp recorded verdicts.
func WithClock(c timeutil.Clock) Option {
	return func(s *Store) { s.clock = c }
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
}

// Open opens (or creates) the database at path and migrates it to the
// latest schema.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry db: %w", err)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	s := &Store{DB: db, path: path, clock: timeutil.RealClock{}}
	for _, o := range opts {
		o(s)
	}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// VerdictRecord is one stored verdict.
type VerdictRecord struct {
	ID         int64            `json:"id"`
	AttemptID  string           `json:"attempt_id"`
	RecordedAt time.Time        `json:"recorded_at"`
	Verdict    classify.Verdict `json:"verdict"`
}

// RecordVerdict stores the features and requirement flags of v.
func (s *Store) RecordVerdict(ctx context.Context, attemptID string, v classify.Verdict) error {
	f, r := v.Features, v.Requirements
	_, err := s.ExecContext(ctx, `
		INSERT INTO verdicts (
			attempt_id, model, pass,
			mean_velocity, variance, velocity_std, velocity_cv,
			jitter_ratio, direction_noise, idle_pauses, sample_count,
			pass_variance, pass_cv, pass_direction, pass_chaos,
			pass_jitter, pass_pauses, pass_samples,
			recorded_at_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attemptID, v.Model, v.Pass,
		f.MeanVelocity, f.Variance, f.VelocityStd, f.VelocityCV,
		f.JitterRatio, f.DirectionNoise, f.IdlePauses, f.SampleCount,
		r.PassVariance, r.PassCV, r.PassDirection, r.PassChaos,
		r.PassJitter, r.PassPauses, r.PassSamples,
		s.clock.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert verdict: %w", err)
	}
	return nil
}

// RecentVerdicts returns up to limit verdicts, newest first.
func (s *Store) RecentVerdicts(ctx context.Context, limit int) ([]VerdictRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.QueryContext(ctx, `
		SELECT verdict_id, attempt_id, model, pass,
			mean_velocity, variance, velocity_std, velocity_cv,
			jitter_ratio, direction_noise, idle_pauses, sample_count,
			pass_variance, pass_cv, pass_direction, pass_chaos,
			pass_jitter, pass_pauses, pass_samples,
			recorded_at_ms
		FROM verdicts
		ORDER BY verdict_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	out := make([]VerdictRecord, 0, limit)
	for rows.Next() {
		var (
			rec VerdictRecord
			f   features.FeatureSet
			r   classify.Requirements
			ms  int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.AttemptID, &rec.Verdict.Model, &rec.Verdict.Pass,
			&f.MeanVelocity, &f.Variance, &f.VelocityStd, &f.VelocityCV,
			&f.JitterRatio, &f.DirectionNoise, &f.IdlePauses, &f.SampleCount,
			&r.PassVariance, &r.PassCV, &r.PassDirection, &r.PassChaos,
			&r.PassJitter, &r.PassPauses, &r.PassSamples,
			&ms,
		); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		rec.Verdict.Features = f
		rec.Verdict.Requirements = r
		rec.RecordedAt = time.UnixMilli(ms).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read verdicts: %w", err)
	}
	return out, nil
}

// PassRateSummary aggregates verdicts over a time range.
type PassRateSummary struct {
	Since  time.Time `json:"since"`
	Total  int       `json:"total"`
	Passed int       `json:"passed"`
	Rate   float64   `json:"rate"`
	// Failed counts, per top-level requirement.
	Failed map[string]int `json:"failed"`
}

// PassRate summarises every verdict recorded at or after since.
func (s *Store) PassRate(ctx context.Context, since time.Time) (PassRateSummary, error) {
	sum := PassRateSummary{Since: since, Failed: map[string]int{}}
	var chaos, jitter, pauses, samples int
	err := s.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(pass), 0),
			COALESCE(SUM(1 - pass_chaos), 0),
			COALESCE(SUM(1 - pass_jitter), 0),
			COALESCE(SUM(1 - pass_pauses), 0),
			COALESCE(SUM(1 - pass_samples), 0)
		FROM verdicts
		WHERE recorded_at_ms >= ?`, since.UnixMilli(),
	).Scan(&sum.Total, &sum.Passed, &chaos, &jitter, &pauses, &samples)
	if err != nil {
		return PassRateSummary{}, fmt.Errorf("failed to compute pass rate: %w", err)
	}

	if sum.Total > 0 {
		sum.Rate = float64(sum.Passed) / float64(sum.Total)
	}
	sum.Failed[classify.RequirementChaos] = chaos
	sum.Failed[classify.RequirementJitter] = jitter
	sum.Failed[classify.RequirementPauses] = pauses
	sum.Failed[classify.RequirementSamples] = samples
	return sum, nil
}
