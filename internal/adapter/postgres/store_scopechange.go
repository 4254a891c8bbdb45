package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/scopechange"
)

// AppendScopeChange inserts the classified record and bumps the project's
// creep ledger in one transaction. A duplicate record ID returns
// domain.ErrConflict: classification is write-once, so redelivered reports
// never reclassify.
func (s *Store) AppendScopeChange(ctx context.Context, rec *scopechange.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin scope change tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO scope_changes
		 (id, project_id, reported_step_id, effort_delta_pct, touches_other_macro_steps, new_dependencies_introduced, classification, reasons, classified_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.ProjectID, rec.ReportedStepID, rec.EffortDeltaPct,
		rec.TouchesOtherMacroSteps, rec.NewDependenciesIntroduced,
		string(rec.Classification), rec.Reasons, rec.ClassifiedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("scope change %s: %w", rec.ID, domain.ErrConflict)
		}
		return fmt.Errorf("insert scope change %s: %w", rec.ID, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO creep_ledger (project_id, total_creep_pct, records, updated_at)
		 VALUES ($1, $2, 1, now())
		 ON CONFLICT (project_id) DO UPDATE
		 SET total_creep_pct = creep_ledger.total_creep_pct + EXCLUDED.total_creep_pct,
		     records = creep_ledger.records + 1,
		     updated_at = now()`,
		rec.ProjectID, rec.EffortDeltaPct)
	if err != nil {
		return fmt.Errorf("bump creep ledger %s: %w", rec.ProjectID, err)
	}

	return tx.Commit(ctx)
}

func (s *Store) GetScopeChange(ctx context.Context, id string) (*scopechange.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, project_id, reported_step_id, effort_delta_pct, touches_other_macro_steps, new_dependencies_introduced, classification, reasons, classified_at
		 FROM scope_changes WHERE id = $1`, id)

	rec, err := scanScopeChange(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get scope change %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get scope change %s: %w", id, err)
	}
	return rec, nil
}

func (s *Store) ListScopeChanges(ctx context.Context, projectID string, limit int) ([]scopechange.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, reported_step_id, effort_delta_pct, touches_other_macro_steps, new_dependencies_introduced, classification, reasons, classified_at
		 FROM scope_changes WHERE project_id = $1 ORDER BY classified_at DESC LIMIT $2`,
		projectID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list scope changes: %w", err)
	}
	defer rows.Close()

	var records []scopechange.Record
	for rows.Next() {
		rec, err := scanScopeChange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scope change: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *Store) GetCreepLedger(ctx context.Context, projectID string) (*scopechange.Ledger, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT project_id, total_creep_pct, records, updated_at FROM creep_ledger WHERE project_id = $1`,
		projectID)

	var l scopechange.Ledger
	if err := row.Scan(&l.ProjectID, &l.TotalCreepPct, &l.Records, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No creep reported yet: an empty ledger, not an error.
			return &scopechange.Ledger{ProjectID: projectID}, nil
		}
		return nil, fmt.Errorf("get creep ledger %s: %w", projectID, err)
	}
	return &l, nil
}

func scanScopeChange(scanner interface{ Scan(dest ...any) error }) (*scopechange.Record, error) {
	var rec scopechange.Record
	err := scanner.Scan(&rec.ID, &rec.ProjectID, &rec.ReportedStepID, &rec.EffortDeltaPct,
		&rec.TouchesOtherMacroSteps, &rec.NewDependenciesIntroduced,
		&rec.Classification, &rec.Reasons, &rec.ClassifiedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
