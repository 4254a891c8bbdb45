package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	arbotel "github.com/arbiterhq/arbiter/internal/adapter/otel"
	"github.com/arbiterhq/arbiter/internal/adapter/ws"
	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/deadletter"
	"github.com/arbiterhq/arbiter/internal/domain/supervision"
	"github.com/arbiterhq/arbiter/internal/port/cache"
	"github.com/arbiterhq/arbiter/internal/port/database"
	"github.com/arbiterhq/arbiter/internal/port/messagequeue"
	"github.com/arbiterhq/arbiter/internal/port/notifier"
	"github.com/arbiterhq/arbiter/internal/resilience"
)

// Supervisor maintains the per-project weighted event accumulator and
// triggers supervisor activation when a project's tier threshold is
// crossed. All updates to a project's state are linearized behind a
// per-project lock; events for different projects proceed in parallel.
type Supervisor struct {
	store    database.Store
	queue    messagequeue.Queue
	resolver *Resolver
	catalog  *supervision.Catalog
	seen     cache.Cache
	notify   *NotificationService
	hub      *ws.Hub
	metrics  *arbotel.Metrics
	breaker  *resilience.Breaker
	retry    resilience.RetryPolicy
	seenTTL  time.Duration
	now      func() time.Time // for testing

	locks  *keyedMutex
	mu     sync.RWMutex // guards states
	states map[string]supervision.State
}

// NewSupervisor creates a new Supervisor.
func NewSupervisor(store database.Store, queue messagequeue.Queue, resolver *Resolver,
	catalog *supervision.Catalog, seen cache.Cache, notify *NotificationService,
	hub *ws.Hub, metrics *arbotel.Metrics, breaker *resilience.Breaker,
	retry resilience.RetryPolicy, seenTTL time.Duration,
) *Supervisor {
	return &Supervisor{
		store:    store,
		queue:    queue,
		resolver: resolver,
		catalog:  catalog,
		seen:     seen,
		notify:   notify,
		hub:      hub,
		metrics:  metrics,
		breaker:  breaker,
		retry:    retry,
		seenTTL:  seenTTL,
		now:      time.Now,
		locks:    newKeyedMutex(),
		states:   make(map[string]supervision.State),
	}
}

// RecordEvent folds one project event into the accumulator and returns the
// activation if the supervisor was triggered. The in-memory state is
// committed only after the activation record has been persisted, so the
// counter reset and the activation side effect happen together or not at
// all. Duplicate event IDs are suppressed (at-least-once delivery).
func (s *Supervisor) RecordEvent(ctx context.Context, ev supervision.Event) (*supervision.Activation, error) {
	unlock := s.locks.Lock(ev.ProjectID)
	defer unlock()

	if s.isDuplicate(ctx, ev) {
		if s.metrics != nil {
			s.metrics.DuplicateEvents.Add(ctx, 1)
		}
		slog.Debug("duplicate event suppressed", "project_id", ev.ProjectID, "event_id", ev.EventID)
		return nil, nil
	}

	res, err := s.resolver.Resolve(ctx, ev.ProjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Events can outlive their project; dropping them is safe.
			slog.Warn("event for unknown project ignored", "project_id", ev.ProjectID)
			return nil, nil
		}
		return nil, err
	}

	if _, known := s.catalog.Weight(ev.Kind); !known {
		slog.Warn("unknown event kind ignored",
			"project_id", ev.ProjectID, "kind", ev.Kind, "catalog", s.catalog.Version)
	}

	st := s.loadState(ctx, ev.ProjectID)
	next, act := s.catalog.Apply(st, res.Tier, ev.Kind, s.now())

	if act != nil {
		act.ID = uuid.NewString()
		if err := s.commitActivation(ctx, ev, next, act); err != nil {
			// Parked in the dead-letter path; the in-memory state is
			// left untouched so the weight is not lost.
			return nil, err
		}
	} else {
		s.persistState(ctx, next)
	}

	s.storeState(next)
	s.markSeen(ctx, ev)
	return act, nil
}

// commitActivation persists and publishes an activation, retrying the
// persistence write with bounded backoff. Exhausted retries park the event
// in the dead-letter table and raise a degraded-mode alert: undercounting
// supervision weight is a safety issue, so the failure is never silent.
func (s *Supervisor) commitActivation(ctx context.Context, ev supervision.Event, next supervision.State, act *supervision.Activation) error {
	err := resilience.Retry(ctx, s.retry, func() error {
		return s.store.AppendActivation(ctx, act)
	})
	if err != nil {
		s.deadLetter(ctx, ev, fmt.Sprintf("persist activation: %v", err))
		return fmt.Errorf("persist activation for project %s: %w", ev.ProjectID, err)
	}

	s.persistState(ctx, next)
	s.publishActivation(ctx, act)

	if s.metrics != nil {
		s.metrics.ActivationsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("tier", string(act.Tier))))
	}
	if !act.Continuous {
		slog.Info("supervisor activated",
			"project_id", act.ProjectID,
			"tier", act.Tier,
			"trigger_kind", act.TriggerKind,
			"accumulated_weight", act.AccumulatedWeightAtTrigger,
		)
	}
	return nil
}

// State returns the current accumulator state for a project.
func (s *Supervisor) State(ctx context.Context, projectID string) (supervision.State, bool) {
	s.mu.RLock()
	st, ok := s.states[projectID]
	s.mu.RUnlock()
	if ok {
		return st, true
	}

	stored, err := s.store.GetAccumulatorState(ctx, projectID)
	if err != nil {
		return supervision.State{}, false
	}
	return *stored, true
}

// Activations returns recent activations for a project, newest first.
func (s *Supervisor) Activations(ctx context.Context, projectID string, limit int) ([]supervision.Activation, error) {
	return s.store.ListActivations(ctx, projectID, limit)
}

// Teardown destroys a project's accumulator state on completion or
// cancellation.
func (s *Supervisor) Teardown(ctx context.Context, projectID string) error {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	if err := s.store.DeleteAccumulatorState(ctx, projectID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.states, projectID)
	s.mu.Unlock()

	slog.Info("supervision state torn down", "project_id", projectID)
	return nil
}

// RunPeriodicChecks injects periodicCheck events for every tracked project
// at the configured interval until ctx is cancelled. The accumulator
// treats the check like any other event; only Standard-tier projects gain
// anything from it, and the tier is resolved per event.
func (s *Supervisor) RunPeriodicChecks(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, projectID := range s.trackedProjects() {
				ev := supervision.Event{
					EventID:   uuid.NewString(),
					ProjectID: projectID,
					Kind:      supervision.EventPeriodicCheck,
					Timestamp: s.now(),
				}
				if _, err := s.RecordEvent(ctx, ev); err != nil {
					slog.Error("periodic check failed", "project_id", projectID, "error", err)
				}
			}
		}
	}
}

// StartEventSubscriber consumes the project event stream.
func (s *Supervisor) StartEventSubscriber(ctx context.Context) (func(), error) {
	return s.queue.Subscribe(ctx, messagequeue.SubjectProjectEvents,
		func(ctx context.Context, _ string, data []byte) error {
			var p messagequeue.ProjectEventPayload
			if err := json.Unmarshal(data, &p); err != nil {
				slog.Error("project event unmarshal failed", "error", err)
				return nil
			}
			ev := supervision.Event{
				EventID:   p.EventID,
				ProjectID: p.ProjectID,
				Kind:      supervision.EventKind(p.Kind),
				Magnitude: p.Magnitude,
				Timestamp: p.Timestamp,
			}
			_, err := s.RecordEvent(ctx, ev)
			if err != nil && !errors.Is(err, context.Canceled) {
				// Persistence failures were already dead-lettered;
				// ack so the bus does not redeliver what we parked.
				slog.Error("record event failed", "project_id", p.ProjectID, "error", err)
			}
			return nil
		})
}

// StartLifecycleSubscribers tears down accumulator state when projects
// complete or are cancelled.
func (s *Supervisor) StartLifecycleSubscribers(ctx context.Context) (func(), error) {
	handler := func(ctx context.Context, subject string, data []byte) error {
		var p messagequeue.ProjectLifecyclePayload
		if err := json.Unmarshal(data, &p); err != nil {
			slog.Error("lifecycle payload unmarshal failed", "subject", subject, "error", err)
			return nil
		}
		if err := s.Teardown(ctx, p.ProjectID); err != nil {
			return fmt.Errorf("teardown project %s: %w", p.ProjectID, err)
		}
		return nil
	}

	cancelCompleted, err := s.queue.Subscribe(ctx, messagequeue.SubjectProjectCompleted, handler)
	if err != nil {
		return nil, err
	}
	cancelCancelled, err := s.queue.Subscribe(ctx, messagequeue.SubjectProjectCancelled, handler)
	if err != nil {
		cancelCompleted()
		return nil, err
	}
	return func() {
		cancelCompleted()
		cancelCancelled()
	}, nil
}

// --- internals (callers hold the per-project lock) ---

func (s *Supervisor) loadState(ctx context.Context, projectID string) supervision.State {
	s.mu.RLock()
	st, ok := s.states[projectID]
	s.mu.RUnlock()
	if ok {
		return st
	}

	// Cold start: recover the last snapshot so a restart does not
	// forget accumulated weight.
	stored, err := s.store.GetAccumulatorState(ctx, projectID)
	if err == nil {
		return *stored
	}
	if !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("accumulator snapshot load failed, starting fresh",
			"project_id", projectID, "error", err)
	}
	return supervision.NewState(projectID, s.now())
}

func (s *Supervisor) storeState(st supervision.State) {
	s.mu.Lock()
	s.states[st.ProjectID] = st
	s.mu.Unlock()
}

func (s *Supervisor) trackedProjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	return ids
}

// persistState snapshots the accumulator. Snapshot failures only cost
// restart fidelity, so they are logged rather than propagated.
func (s *Supervisor) persistState(ctx context.Context, st supervision.State) {
	if err := s.store.SaveAccumulatorState(ctx, st); err != nil {
		slog.Warn("accumulator snapshot failed", "project_id", st.ProjectID, "error", err)
	}
}

func (s *Supervisor) isDuplicate(ctx context.Context, ev supervision.Event) bool {
	if s.seen == nil || ev.EventID == "" {
		return false
	}
	_, ok, err := s.seen.Get(ctx, seenKey(ev))
	if err != nil {
		slog.Warn("dedup cache read failed", "error", err)
		return false
	}
	return ok
}

func (s *Supervisor) markSeen(ctx context.Context, ev supervision.Event) {
	if s.seen == nil || ev.EventID == "" {
		return
	}
	if err := s.seen.Set(ctx, seenKey(ev), []byte{1}, s.seenTTL); err != nil {
		slog.Warn("dedup cache write failed", "error", err)
	}
}

func seenKey(ev supervision.Event) string {
	return "seen:" + ev.ProjectID + ":" + ev.EventID
}

func (s *Supervisor) publishActivation(ctx context.Context, act *supervision.Activation) {
	payload := messagequeue.ActivationPayload{
		ActivationID:      act.ID,
		ProjectID:         act.ProjectID,
		Tier:              string(act.Tier),
		TriggerKind:       string(act.TriggerKind),
		AccumulatedWeight: act.AccumulatedWeightAtTrigger,
		Continuous:        act.Continuous,
		TriggeredAt:       act.TriggeredAt,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("activation payload marshal failed", "activation_id", act.ID, "error", err)
		return
	}

	err = s.breaker.Execute(func() error {
		return s.queue.Publish(ctx, messagequeue.SubjectSupervisionActivated, data)
	})
	if err != nil {
		slog.Error("activation publish failed", "activation_id", act.ID, "error", err)
	}

	if s.hub != nil && !act.Continuous {
		s.hub.Broadcast(ctx, ws.NewMessage(ws.TypeActivation, act))
	}
}

// deadLetter parks an event whose side effects could not be persisted and
// raises a degraded-mode alert.
func (s *Supervisor) deadLetter(ctx context.Context, ev supervision.Event, reason string) {
	payload, err := json.Marshal(ev)
	if err != nil {
		payload = []byte("{}")
	}
	dl := &deadletter.DeadLetter{
		ID:        uuid.NewString(),
		ProjectID: ev.ProjectID,
		Subject:   messagequeue.SubjectProjectEvents,
		Payload:   payload,
		Reason:    reason,
		FailedAt:  s.now().UTC(),
	}
	if err := s.store.AppendDeadLetter(ctx, dl); err != nil {
		// Last resort: the event survives only in the log.
		slog.Error("dead letter write failed", "project_id", ev.ProjectID,
			"reason", reason, "event", string(payload), "error", err)
	}
	if s.metrics != nil {
		s.metrics.DeadLettersTotal.Add(ctx, 1)
	}

	alert, err := json.Marshal(messagequeue.DegradedModePayload{
		ProjectID: ev.ProjectID,
		Reason:    reason,
		RaisedAt:  s.now().UTC(),
	})
	if err == nil {
		if pubErr := s.queue.Publish(ctx, messagequeue.SubjectDegradedMode, alert); pubErr != nil {
			slog.Error("degraded-mode alert publish failed", "error", pubErr)
		}
	}

	if s.notify != nil {
		s.notify.Notify(ctx, notifier.Notification{
			Title:   "Supervision degraded",
			Message: fmt.Sprintf("event for project %s parked in dead-letter path: %s", ev.ProjectID, reason),
			Level:   "error",
			Source:  "supervision.degraded",
		})
	}
}
