package postgres

import (
	"context"
	"fmt"

	"github.com/arbiterhq/arbiter/internal/domain/adjudication"
)

// AppendDecision inserts a new decision. Decisions are append-only: a
// re-adjudication creates a new row and history is never overwritten.
func (s *Store) AppendDecision(ctx context.Context, d *adjudication.Decision) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO adjudication_decisions
		 (id, project_id, step_id, verdict, weighted_score, cost_contribution, timeline_contribution, risk_contribution, rationale, incomplete, confidence_capped, decided_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, d.ProjectID, d.StepID, string(d.Verdict), d.WeightedScore,
		d.Contribution.Cost, d.Contribution.Timeline, d.Contribution.Risk,
		d.Rationale, d.Incomplete, d.ConfidenceCapped, d.DecidedAt)
	if err != nil {
		return fmt.Errorf("append decision %s: %w", d.ID, err)
	}
	return nil
}

func (s *Store) ListDecisions(ctx context.Context, projectID string, limit int) ([]adjudication.Decision, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, step_id, verdict, weighted_score, cost_contribution, timeline_contribution, risk_contribution, rationale, incomplete, confidence_capped, decided_at
		 FROM adjudication_decisions WHERE project_id = $1 ORDER BY decided_at DESC LIMIT $2`,
		projectID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []adjudication.Decision
	for rows.Next() {
		var d adjudication.Decision
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.StepID, &d.Verdict, &d.WeightedScore,
			&d.Contribution.Cost, &d.Contribution.Timeline, &d.Contribution.Risk,
			&d.Rationale, &d.Incomplete, &d.ConfidenceCapped, &d.DecidedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
