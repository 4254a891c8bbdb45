package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/project"
	"github.com/arbiterhq/arbiter/internal/domain/weights"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Projects ---

func (s *Store) GetProject(ctx context.Context, id string) (*project.Project, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, status, created_at, updated_at FROM projects WHERE id = $1`, id)

	var p project.Project
	if err := row.Scan(&p.ID, &p.Name, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get project %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return &p, nil
}

func (s *Store) GetBudget(ctx context.Context, projectID string) (*project.Budget, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT project_id, tier, budget_remaining_usd, schedule_slack_hours, variance_tolerance_pct, updated_at
		 FROM project_budgets WHERE project_id = $1`, projectID)

	var b project.Budget
	err := row.Scan(&b.ProjectID, &b.Tier, &b.BudgetRemainingUSD, &b.ScheduleSlackHours, &b.VarianceTolerancePct, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get budget for project %s: %w", projectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get budget for project %s: %w", projectID, err)
	}
	return &b, nil
}

func (s *Store) GetWeightProfile(ctx context.Context, projectID string) (*weights.Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT preset, cost_weight, timeline_weight, risk_weight
		 FROM weight_profiles WHERE project_id = $1`, projectID)

	var p weights.Profile
	if err := row.Scan(&p.Preset, &p.CostWeight, &p.TimelineWeight, &p.RiskWeight); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get weight profile for project %s: %w", projectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get weight profile for project %s: %w", projectID, err)
	}
	return &p, nil
}
