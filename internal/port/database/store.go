// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/arbiterhq/arbiter/internal/domain/adjudication"
	"github.com/arbiterhq/arbiter/internal/domain/deadletter"
	"github.com/arbiterhq/arbiter/internal/domain/project"
	"github.com/arbiterhq/arbiter/internal/domain/scopechange"
	"github.com/arbiterhq/arbiter/internal/domain/supervision"
	"github.com/arbiterhq/arbiter/internal/domain/weights"
)

// Store is the port interface for database operations.
type Store interface {
	// Projects (read-only: owned by the project-tracking collaborator)
	GetProject(ctx context.Context, id string) (*project.Project, error)
	GetBudget(ctx context.Context, projectID string) (*project.Budget, error)
	GetWeightProfile(ctx context.Context, projectID string) (*weights.Profile, error)

	// Adjudication decisions (append-only, full history retained)
	AppendDecision(ctx context.Context, d *adjudication.Decision) error
	ListDecisions(ctx context.Context, projectID string, limit int) ([]adjudication.Decision, error)

	// Supervision
	AppendActivation(ctx context.Context, a *supervision.Activation) error
	ListActivations(ctx context.Context, projectID string, limit int) ([]supervision.Activation, error)
	SaveAccumulatorState(ctx context.Context, st supervision.State) error
	GetAccumulatorState(ctx context.Context, projectID string) (*supervision.State, error)
	DeleteAccumulatorState(ctx context.Context, projectID string) error

	// Scope changes. AppendScopeChange inserts the classified record and
	// bumps the project's creep ledger in one transaction; a duplicate
	// record ID returns domain.ErrConflict (classification is write-once).
	AppendScopeChange(ctx context.Context, rec *scopechange.Record) error
	GetScopeChange(ctx context.Context, id string) (*scopechange.Record, error)
	ListScopeChanges(ctx context.Context, projectID string, limit int) ([]scopechange.Record, error)
	GetCreepLedger(ctx context.Context, projectID string) (*scopechange.Ledger, error)

	// Dead letters
	AppendDeadLetter(ctx context.Context, dl *deadletter.DeadLetter) error
	ListDeadLetters(ctx context.Context, limit int) ([]deadletter.DeadLetter, error)
}
