package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/adjudication"
	"github.com/arbiterhq/arbiter/internal/domain/supervision"
	"github.com/arbiterhq/arbiter/internal/domain/weights"
	"github.com/arbiterhq/arbiter/internal/port/database"
)

// Resolver resolves a project's decision weights and supervision tier into
// the concrete parameters the adjudicator and supervisor evaluate against.
// It is a pure read with no side effects.
type Resolver struct {
	store database.Store
}

// NewResolver creates a new Resolver.
func NewResolver(store database.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolution is the resolved parameter set for one project.
type Resolution struct {
	Profile weights.Profile
	Tier    supervision.Tier
	Budget  adjudication.BudgetContext

	// TolerancePct is the project's budget-variance tolerance for the
	// scope-creep ledger; zero means not configured.
	TolerancePct float64
}

// Resolve returns the project's weight profile, tier, and budget context.
// A missing project is fatal to the caller (wraps domain.ErrNotFound): no
// decision can be made for a project that does not exist. A missing
// budget or weight record degrades to Budget tier with default weights
// and is logged as a warning.
func (r *Resolver) Resolve(ctx context.Context, projectID string) (*Resolution, error) {
	if _, err := r.store.GetProject(ctx, projectID); err != nil {
		return nil, fmt.Errorf("resolve project %s: %w", projectID, err)
	}

	res := &Resolution{
		Profile: weights.Default(),
		Tier:    supervision.TierBudget,
	}

	budget, err := r.store.GetBudget(ctx, projectID)
	switch {
	case err == nil:
		res.Tier = supervision.ParseTier(budget.Tier)
		res.Budget = adjudication.BudgetContext{
			BudgetRemainingUSD: budget.BudgetRemainingUSD,
			ScheduleSlackHours: budget.ScheduleSlackHours,
		}
		res.TolerancePct = budget.VarianceTolerancePct
	case errors.Is(err, domain.ErrNotFound):
		slog.Warn("project has no budget record, defaulting to budget tier",
			"project_id", projectID)
	default:
		return nil, fmt.Errorf("resolve budget %s: %w", projectID, err)
	}

	prof, err := r.store.GetWeightProfile(ctx, projectID)
	switch {
	case err == nil:
		res.Profile = prof.Sanitized()
	case errors.Is(err, domain.ErrNotFound):
		slog.Warn("project has no weight profile, using default weights",
			"project_id", projectID)
	default:
		return nil, fmt.Errorf("resolve weight profile %s: %w", projectID, err)
	}

	return res, nil
}
