package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/deadletter"
	"github.com/arbiterhq/arbiter/internal/domain/supervision"
)

func (s *Store) AppendActivation(ctx context.Context, a *supervision.Activation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO supervision_activations
		 (id, project_id, tier, trigger_kind, accumulated_weight, continuous, catalog_version, triggered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.ProjectID, string(a.Tier), string(a.TriggerKind),
		a.AccumulatedWeightAtTrigger, a.Continuous, a.CatalogVersion, a.TriggeredAt)
	if err != nil {
		return fmt.Errorf("append activation %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) ListActivations(ctx context.Context, projectID string, limit int) ([]supervision.Activation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, tier, trigger_kind, accumulated_weight, continuous, catalog_version, triggered_at
		 FROM supervision_activations WHERE project_id = $1 ORDER BY triggered_at DESC LIMIT $2`,
		projectID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list activations: %w", err)
	}
	defer rows.Close()

	var activations []supervision.Activation
	for rows.Next() {
		var a supervision.Activation
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Tier, &a.TriggerKind,
			&a.AccumulatedWeightAtTrigger, &a.Continuous, &a.CatalogVersion, &a.TriggeredAt); err != nil {
			return nil, fmt.Errorf("scan activation: %w", err)
		}
		activations = append(activations, a)
	}
	return activations, rows.Err()
}

// SaveAccumulatorState upserts the per-project accumulator snapshot.
func (s *Store) SaveAccumulatorState(ctx context.Context, st supervision.State) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO supervision_state (project_id, accumulated_weight, window_start, last_event_at, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (project_id) DO UPDATE
		 SET accumulated_weight = EXCLUDED.accumulated_weight,
		     window_start = EXCLUDED.window_start,
		     last_event_at = EXCLUDED.last_event_at,
		     updated_at = now()`,
		st.ProjectID, st.AccumulatedWeight, st.WindowStart, nullIfZeroTime(st.LastEventAt))
	if err != nil {
		return fmt.Errorf("save accumulator state %s: %w", st.ProjectID, err)
	}
	return nil
}

func (s *Store) GetAccumulatorState(ctx context.Context, projectID string) (*supervision.State, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT project_id, accumulated_weight, window_start, COALESCE(last_event_at, 'epoch'::timestamptz)
		 FROM supervision_state WHERE project_id = $1`, projectID)

	var st supervision.State
	if err := row.Scan(&st.ProjectID, &st.AccumulatedWeight, &st.WindowStart, &st.LastEventAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get accumulator state %s: %w", projectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get accumulator state %s: %w", projectID, err)
	}
	return &st, nil
}

// DeleteAccumulatorState removes the snapshot when a project completes or
// is cancelled.
func (s *Store) DeleteAccumulatorState(ctx context.Context, projectID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM supervision_state WHERE project_id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("delete accumulator state %s: %w", projectID, err)
	}
	return nil
}

// --- Dead letters ---

func (s *Store) AppendDeadLetter(ctx context.Context, dl *deadletter.DeadLetter) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO dead_letters (id, project_id, subject, payload, reason, failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		dl.ID, nullIfEmpty(dl.ProjectID), dl.Subject, dl.Payload, dl.Reason, dl.FailedAt)
	if err != nil {
		return fmt.Errorf("append dead letter %s: %w", dl.ID, err)
	}
	return nil
}

func (s *Store) ListDeadLetters(ctx context.Context, limit int) ([]deadletter.DeadLetter, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, COALESCE(project_id::text, ''), subject, payload, reason, failed_at
		 FROM dead_letters ORDER BY failed_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var letters []deadletter.DeadLetter
	for rows.Next() {
		var dl deadletter.DeadLetter
		if err := rows.Scan(&dl.ID, &dl.ProjectID, &dl.Subject, &dl.Payload, &dl.Reason, &dl.FailedAt); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		letters = append(letters, dl)
	}
	return letters, rows.Err()
}
