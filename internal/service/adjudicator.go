package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	arbotel "github.com/arbiterhq/arbiter/internal/adapter/otel"
	"github.com/arbiterhq/arbiter/internal/adapter/ws"
	"github.com/arbiterhq/arbiter/internal/domain/adjudication"
	"github.com/arbiterhq/arbiter/internal/domain/estimate"
	"github.com/arbiterhq/arbiter/internal/port/database"
	"github.com/arbiterhq/arbiter/internal/port/messagequeue"
	"github.com/arbiterhq/arbiter/internal/resilience"
)

// Adjudicator runs the go/no-go decision for macro steps: it resolves the
// project's weight profile and budget context, evaluates the pure decision
// function, persists the decision record, and publishes it downstream.
type Adjudicator struct {
	store      database.Store
	queue      messagequeue.Queue
	resolver   *Resolver
	hub        *ws.Hub
	metrics    *arbotel.Metrics
	breaker    *resilience.Breaker
	thresholds adjudication.Thresholds
	retry      resilience.RetryPolicy
	now        func() time.Time // for testing
}

// NewAdjudicator creates a new Adjudicator.
func NewAdjudicator(store database.Store, queue messagequeue.Queue, resolver *Resolver,
	hub *ws.Hub, metrics *arbotel.Metrics, breaker *resilience.Breaker,
	thresholds adjudication.Thresholds, retry resilience.RetryPolicy,
) *Adjudicator {
	return &Adjudicator{
		store:      store,
		queue:      queue,
		resolver:   resolver,
		hub:        hub,
		metrics:    metrics,
		breaker:    breaker,
		thresholds: thresholds,
		retry:      retry,
		now:        time.Now,
	}
}

// Adjudicate decides whether the estimated macro step should proceed. The
// decision itself is pure and deterministic; the persistence write is the
// only suspension point and is retried with backoff before failing.
func (a *Adjudicator) Adjudicate(ctx context.Context, projectID string, est *estimate.MacroStepEstimate) (*adjudication.Decision, error) {
	ctx, span := arbotel.StartSpan(ctx, "adjudicate", projectID, est.StepID)
	defer span.End()

	res, err := a.resolver.Resolve(ctx, projectID)
	if err != nil {
		return nil, err
	}

	d := adjudication.Adjudicate(est, res.Profile, res.Budget, a.thresholds, a.now())
	d.ID = uuid.NewString()
	d.ProjectID = projectID

	err = resilience.Retry(ctx, a.retry, func() error {
		return a.store.AppendDecision(ctx, &d)
	})
	if err != nil {
		return nil, fmt.Errorf("persist decision for step %s: %w", est.StepID, err)
	}

	a.publish(ctx, &d)

	if a.metrics != nil {
		a.metrics.DecisionsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("verdict", string(d.Verdict))))
		a.metrics.AdjudicationScore.Record(ctx, d.WeightedScore)
	}

	slog.Info("macro step adjudicated",
		"project_id", projectID,
		"step_id", est.StepID,
		"verdict", d.Verdict,
		"score", d.WeightedScore,
		"incomplete", d.Incomplete,
	)
	return &d, nil
}

// Decisions returns the decision history for a project, newest first.
func (a *Adjudicator) Decisions(ctx context.Context, projectID string, limit int) ([]adjudication.Decision, error) {
	return a.store.ListDecisions(ctx, projectID, limit)
}

// publish emits the decision on the bus and the ws feed. Publish failures
// are logged, not returned: the decision is already durably persisted and
// downstream consumers can replay from storage.
func (a *Adjudicator) publish(ctx context.Context, d *adjudication.Decision) {
	payload := messagequeue.DecisionPayload{
		DecisionID:    d.ID,
		ProjectID:     d.ProjectID,
		StepID:        d.StepID,
		Verdict:       string(d.Verdict),
		WeightedScore: d.WeightedScore,
		Rationale:     d.Rationale,
		DecidedAt:     d.DecidedAt,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("decision payload marshal failed", "decision_id", d.ID, "error", err)
		return
	}

	err = a.breaker.Execute(func() error {
		return a.queue.Publish(ctx, messagequeue.SubjectDecisionAdjudicated, data)
	})
	if err != nil {
		slog.Error("decision publish failed", "decision_id", d.ID, "error", err)
	}

	if a.hub != nil {
		a.hub.Broadcast(ctx, ws.NewMessage(ws.TypeDecision, d))
	}
}

// StartEstimateSubscriber consumes estimates.ready messages and
// adjudicates each step as its estimates arrive.
func (a *Adjudicator) StartEstimateSubscriber(ctx context.Context) (func(), error) {
	return a.queue.Subscribe(ctx, messagequeue.SubjectEstimateReady,
		func(ctx context.Context, _ string, data []byte) error {
			var p messagequeue.EstimateReadyPayload
			if err := json.Unmarshal(data, &p); err != nil {
				// Malformed payloads can never succeed on redelivery.
				slog.Error("estimate payload unmarshal failed", "error", err)
				return nil
			}

			est := estimateFromPayload(p)
			if _, err := a.Adjudicate(ctx, p.ProjectID, est); err != nil {
				return fmt.Errorf("adjudicate step %s: %w", p.StepID, err)
			}
			return nil
		})
}

func estimateFromPayload(p messagequeue.EstimateReadyPayload) *estimate.MacroStepEstimate {
	est := &estimate.MacroStepEstimate{StepID: p.StepID}
	if p.Cost != nil {
		est.Cost = &estimate.Cost{Tokens: p.Cost.Tokens, USD: p.Cost.USD, Confidence: p.Cost.Confidence}
	}
	if p.Timeline != nil {
		est.Timeline = &estimate.Timeline{Hours: p.Timeline.Hours, Confidence: p.Timeline.Confidence}
	}
	if p.Risk != nil {
		est.Risk = &estimate.Risk{Score: p.Risk.Score, Factors: p.Risk.Factors, Confidence: p.Risk.Confidence}
	}
	return est
}
