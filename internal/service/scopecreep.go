package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	arbotel "github.com/arbiterhq/arbiter/internal/adapter/otel"
	"github.com/arbiterhq/arbiter/internal/adapter/ws"
	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/scopechange"
	"github.com/arbiterhq/arbiter/internal/port/database"
	"github.com/arbiterhq/arbiter/internal/port/messagequeue"
	"github.com/arbiterhq/arbiter/internal/port/notifier"
	"github.com/arbiterhq/arbiter/internal/resilience"
)

// ScopeCreep classifies reported scope changes and drives the escalation
// side effects. Classification is write-once: a replayed report lands on
// the stored record instead of producing a second classification.
type ScopeCreep struct {
	store    database.Store
	queue    messagequeue.Queue
	resolver *Resolver
	notify   *NotificationService
	hub      *ws.Hub
	metrics  *arbotel.Metrics
	breaker  *resilience.Breaker
	rule     scopechange.Rule
	retry    resilience.RetryPolicy
	now      func() time.Time // for testing

	locks *keyedMutex
}

// NewScopeCreep creates a new ScopeCreep service.
func NewScopeCreep(store database.Store, queue messagequeue.Queue, resolver *Resolver,
	notify *NotificationService, hub *ws.Hub, metrics *arbotel.Metrics,
	breaker *resilience.Breaker, rule scopechange.Rule, retry resilience.RetryPolicy,
) *ScopeCreep {
	return &ScopeCreep{
		store:    store,
		queue:    queue,
		resolver: resolver,
		notify:   notify,
		hub:      hub,
		metrics:  metrics,
		breaker:  breaker,
		rule:     rule,
		retry:    retry,
		now:      time.Now,
		locks:    newKeyedMutex(),
	}
}

// Classify classifies one reported scope change against the project's
// creep ledger. The record and the ledger increment are persisted in one
// transaction, so the ledger can never drift from the records it
// summarizes. The classifying team is always notified, whichever way the
// decision goes.
func (s *ScopeCreep) Classify(ctx context.Context, ch scopechange.Change) (*scopechange.Record, error) {
	ctx, span := arbotel.StartSpan(ctx, "classify_scope_change", ch.ProjectID, ch.ReportedStepID)
	defer span.End()

	unlock := s.locks.Lock(ch.ProjectID)
	defer unlock()

	res, err := s.resolver.Resolve(ctx, ch.ProjectID)
	if err != nil {
		return nil, err
	}

	rule := s.rule
	if res.TolerancePct > 0 {
		rule.TolerancePct = res.TolerancePct
	}

	ledger, err := s.store.GetCreepLedger(ctx, ch.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load creep ledger %s: %w", ch.ProjectID, err)
	}

	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	rec := rule.Classify(ch, *ledger, s.now())

	err = resilience.Retry(ctx, s.retry, func() error {
		if err := s.store.AppendScopeChange(ctx, &rec); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				// Duplicate redelivery, not a transient fault.
				return resilience.Permanent(err)
			}
			return err
		}
		return nil
	})
	if errors.Is(err, domain.ErrConflict) {
		// Redelivered report: the first classification stands.
		stored, getErr := s.store.GetScopeChange(ctx, ch.ID)
		if getErr != nil {
			return nil, fmt.Errorf("load classified change %s: %w", ch.ID, getErr)
		}
		return stored, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist scope change %s: %w", ch.ID, err)
	}

	if rec.Classification == scopechange.ClassificationEscalate {
		s.escalate(ctx, &rec)
	}
	s.notifyClassified(ctx, &rec)

	if s.metrics != nil {
		s.metrics.EscalationsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("classification", string(rec.Classification))))
	}
	if s.hub != nil {
		s.hub.Broadcast(ctx, ws.NewMessage(ws.TypeScopeClass, rec))
	}

	slog.Info("scope change classified",
		"project_id", ch.ProjectID,
		"change_id", ch.ID,
		"classification", rec.Classification,
		"effort_delta_pct", ch.EffortDeltaPct,
	)
	return &rec, nil
}

// Change returns a classified scope change by ID.
func (s *ScopeCreep) Change(ctx context.Context, changeID string) (*scopechange.Record, error) {
	return s.store.GetScopeChange(ctx, changeID)
}

// Changes returns a project's classified scope changes, newest first.
func (s *ScopeCreep) Changes(ctx context.Context, projectID string, limit int) ([]scopechange.Record, error) {
	return s.store.ListScopeChanges(ctx, projectID, limit)
}

// Ledger returns a project's cumulative creep ledger.
func (s *ScopeCreep) Ledger(ctx context.Context, projectID string) (*scopechange.Ledger, error) {
	return s.store.GetCreepLedger(ctx, projectID)
}

// escalate requests a re-plan and suspends the reported step. Both
// publishes are best-effort after the durable record: the planner can
// replay escalations from storage if the bus was down.
func (s *ScopeCreep) escalate(ctx context.Context, rec *scopechange.Record) {
	replan, err := json.Marshal(messagequeue.ReplanPayload{
		ProjectID:      rec.ProjectID,
		ChangeID:       rec.ID,
		ReportedStepID: rec.ReportedStepID,
		Reasons:        rec.Reasons,
		RequestedAt:    rec.ClassifiedAt,
	})
	if err == nil {
		err = s.breaker.Execute(func() error {
			return s.queue.Publish(ctx, messagequeue.SubjectReplanRequested, replan)
		})
	}
	if err != nil {
		slog.Error("replan publish failed", "change_id", rec.ID, "error", err)
	}

	suspend, err := json.Marshal(messagequeue.SuspendPayload{
		ProjectID: rec.ProjectID,
		StepID:    rec.ReportedStepID,
		Reason:    "scope change escalated: " + rec.ID,
	})
	if err == nil {
		err = s.breaker.Execute(func() error {
			return s.queue.Publish(ctx, messagequeue.SubjectStepsSuspend, suspend)
		})
	}
	if err != nil {
		slog.Error("suspend publish failed", "change_id", rec.ID, "error", err)
	}
}

func (s *ScopeCreep) notifyClassified(ctx context.Context, rec *scopechange.Record) {
	if s.notify == nil {
		return
	}
	level := "info"
	msg := fmt.Sprintf("scope change %s on step %s absorbed locally (%.1f%% effort delta)",
		rec.ID, rec.ReportedStepID, rec.EffortDeltaPct)
	if rec.Classification == scopechange.ClassificationEscalate {
		level = "warn"
		msg = fmt.Sprintf("scope change %s on step %s escalated for re-planning: %v",
			rec.ID, rec.ReportedStepID, rec.Reasons)
	}
	s.notify.Notify(ctx, notifier.Notification{
		Title:   "Scope change classified",
		Message: msg,
		Level:   level,
		Source:  "scope.classified",
	})
}

// StartScopeChangeSubscriber consumes scope.reported messages.
func (s *ScopeCreep) StartScopeChangeSubscriber(ctx context.Context) (func(), error) {
	return s.queue.Subscribe(ctx, messagequeue.SubjectScopeChangeReported,
		func(ctx context.Context, _ string, data []byte) error {
			var p messagequeue.ScopeChangePayload
			if err := json.Unmarshal(data, &p); err != nil {
				slog.Error("scope change unmarshal failed", "error", err)
				return nil
			}
			ch := scopechange.Change{
				ID:                        p.ChangeID,
				ProjectID:                 p.ProjectID,
				ReportedStepID:            p.ReportedStepID,
				EffortDeltaPct:            p.EffortDeltaPct,
				TouchesOtherMacroSteps:    p.TouchesOtherMacroSteps,
				NewDependenciesIntroduced: p.NewDependenciesIntroduced,
			}
			if _, err := s.Classify(ctx, ch); err != nil {
				return fmt.Errorf("classify change %s: %w", p.ChangeID, err)
			}
			return nil
		})
}
