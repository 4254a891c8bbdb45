package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/arbiterhq/arbiter/internal/domain/scopechange"
	"github.com/arbiterhq/arbiter/internal/port/messagequeue"
	"github.com/arbiterhq/arbiter/internal/port/notifier"
	"github.com/arbiterhq/arbiter/internal/resilience"
)

func newTestScopeCreep(store *mockStore, queue *mockQueue, notify *NotificationService) *ScopeCreep {
	return NewScopeCreep(store, queue, NewResolver(store), notify, nil, nil,
		resilience.NewBreaker(3, time.Second), scopechange.DefaultRule(), testRetry())
}

func change(id, projectID string, deltaPct float64) scopechange.Change {
	return scopechange.Change{
		ID:             id,
		ProjectID:      projectID,
		ReportedStepID: "step-1",
		EffortDeltaPct: deltaPct,
	}
}

func TestClassifyLocalHandlingNotifiesWithoutEscalating(t *testing.T) {
	store := newMockStore()
	seedProject(store, "p1")
	queue := &mockQueue{}
	mn := &mockNotifier{}
	svc := newTestScopeCreep(store, queue, NewNotificationService([]notifier.Notifier{mn}, nil))

	rec, err := svc.Classify(context.Background(), change("c1", "p1", 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Classification != scopechange.ClassificationLocal {
		t.Fatalf("Classification = %q, want local_handling", rec.Classification)
	}

	if len(queue.subjects()) != 0 {
		t.Fatalf("local handling must not publish: %v", queue.subjects())
	}
	if mn.count() != 1 {
		t.Fatal("classification must always notify, even for local handling")
	}

	ledger, _ := svc.Ledger(context.Background(), "p1")
	if ledger.TotalCreepPct != 15 || ledger.Records != 1 {
		t.Fatalf("ledger not updated: %+v", ledger)
	}
}

func TestClassifyEscalatePublishesReplanAndSuspend(t *testing.T) {
	store := newMockStore()
	seedProject(store, "p1")
	queue := &mockQueue{}
	mn := &mockNotifier{}
	svc := newTestScopeCreep(store, queue, NewNotificationService([]notifier.Notifier{mn}, nil))

	rec, err := svc.Classify(context.Background(), change("c1", "p1", 30))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Classification != scopechange.ClassificationEscalate {
		t.Fatalf("Classification = %q, want escalate", rec.Classification)
	}

	subs := queue.subjects()
	if len(subs) != 2 || subs[0] != messagequeue.SubjectReplanRequested || subs[1] != messagequeue.SubjectStepsSuspend {
		t.Fatalf("published subjects = %v", subs)
	}

	var replan messagequeue.ReplanPayload
	if err := json.Unmarshal(queue.published[0].data, &replan); err != nil {
		t.Fatalf("bad replan payload: %v", err)
	}
	if replan.ChangeID != "c1" || len(replan.Reasons) == 0 {
		t.Fatalf("replan payload missing audit trail: %+v", replan)
	}

	if mn.count() != 1 {
		t.Fatal("escalation must notify")
	}
}

func TestClassifyRedeliveryIsIdempotent(t *testing.T) {
	store := newMockStore()
	seedProject(store, "p1")
	queue := &mockQueue{}
	svc := newTestScopeCreep(store, queue, nil)
	ctx := context.Background()

	first, err := svc.Classify(ctx, change("c1", "p1", 30))
	if err != nil {
		t.Fatalf("first classification: %v", err)
	}
	publishedOnce := len(queue.subjects())

	second, err := svc.Classify(ctx, change("c1", "p1", 30))
	if err != nil {
		t.Fatalf("redelivery must return the stored record: %v", err)
	}
	if second.Classification != first.Classification || !second.ClassifiedAt.Equal(first.ClassifiedAt) {
		t.Fatalf("redelivery produced a different record: %+v vs %+v", second, first)
	}

	if len(queue.subjects()) != publishedOnce {
		t.Fatal("redelivery re-published escalation side effects")
	}
	ledger, _ := svc.Ledger(ctx, "p1")
	if ledger.Records != 1 {
		t.Fatalf("redelivery double-counted the ledger: %+v", ledger)
	}
	// The conflict is a terminal outcome, not a transient fault: one
	// append per delivery, no backoff attempts in between.
	if store.appendScopeCalls != 2 {
		t.Fatalf("append attempts = %d, want 2 (conflict must not be retried)", store.appendScopeCalls)
	}
}

func TestClassifyUsesProjectTolerance(t *testing.T) {
	store := newMockStore()
	seedProject(store, "p1")
	b := store.budgets["p1"]
	b.VarianceTolerancePct = 20
	store.budgets["p1"] = b

	svc := newTestScopeCreep(store, &mockQueue{}, nil)

	// 15% delta is locally absorbable on its own, but the project's
	// tighter 20% tolerance makes the cumulative check fail.
	rec, err := svc.Classify(context.Background(), change("c1", "p1", 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Classification != scopechange.ClassificationEscalate {
		t.Fatalf("project tolerance not applied: %+v", rec)
	}
}

func TestClassifyLedgerAccumulatesAcrossChanges(t *testing.T) {
	store := newMockStore()
	seedProject(store, "p1")
	svc := newTestScopeCreep(store, &mockQueue{}, nil)
	ctx := context.Background()

	// Two small changes stay local; the third crosses the 50% tolerance
	// cumulatively even though it is small on its own.
	for i, id := range []string{"c1", "c2"} {
		rec, err := svc.Classify(ctx, change(id, "p1", 20))
		if err != nil {
			t.Fatalf("change %d: %v", i, err)
		}
		if rec.Classification != scopechange.ClassificationLocal {
			t.Fatalf("change %d escalated early: %v", i, rec.Reasons)
		}
	}

	rec, err := svc.Classify(ctx, change("c3", "p1", 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Classification != scopechange.ClassificationEscalate {
		t.Fatal("cumulative creep past tolerance must escalate")
	}
}

func TestScopeChangeSubscriberClassifies(t *testing.T) {
	store := newMockStore()
	seedProject(store, "p1")
	queue := &mockQueue{}
	svc := newTestScopeCreep(store, queue, nil)
	ctx := context.Background()

	cancel, err := svc.StartScopeChangeSubscriber(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	payload, _ := json.Marshal(messagequeue.ScopeChangePayload{
		ChangeID:       "c1",
		ProjectID:      "p1",
		ReportedStepID: "step-1",
		EffortDeltaPct: 10,
	})
	handler := queue.handlers[messagequeue.SubjectScopeChangeReported]
	if err := handler(ctx, messagequeue.SubjectScopeChangeReported, payload); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	rec, err := svc.Change(ctx, "c1")
	if err != nil {
		t.Fatalf("change not stored: %v", err)
	}
	if rec.Classification != scopechange.ClassificationLocal {
		t.Fatalf("Classification = %q", rec.Classification)
	}
}
