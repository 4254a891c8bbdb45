package service

import (
	"context"
	"sync"
	"time"

	"github.com/arbiterhq/arbiter/internal/domain"
	"github.com/arbiterhq/arbiter/internal/domain/adjudication"
	"github.com/arbiterhq/arbiter/internal/domain/deadletter"
	"github.com/arbiterhq/arbiter/internal/domain/project"
	"github.com/arbiterhq/arbiter/internal/domain/scopechange"
	"github.com/arbiterhq/arbiter/internal/domain/supervision"
	"github.com/arbiterhq/arbiter/internal/domain/weights"
	"github.com/arbiterhq/arbiter/internal/port/cache"
	"github.com/arbiterhq/arbiter/internal/port/database"
	"github.com/arbiterhq/arbiter/internal/port/messagequeue"
	"github.com/arbiterhq/arbiter/internal/port/notifier"
)

// Ensure mock types implement their interfaces at compile time.
var (
	_ database.Store     = (*mockStore)(nil)
	_ messagequeue.Queue = (*mockQueue)(nil)
	_ cache.Cache        = (*mockCache)(nil)
	_ notifier.Notifier  = (*mockNotifier)(nil)
)

type mockStore struct {
	mu sync.Mutex

	projects map[string]project.Project
	budgets  map[string]project.Budget
	profiles map[string]weights.Profile

	decisions   []adjudication.Decision
	activations []supervision.Activation
	states      map[string]supervision.State
	changes     map[string]scopechange.Record
	ledgers     map[string]scopechange.Ledger
	deadLetters []deadletter.DeadLetter

	appendDecisionErr   error
	appendActivationErr error
	appendScopeErr      error
	saveStateErr        error

	appendScopeCalls int
}

func newMockStore() *mockStore {
	return &mockStore{
		projects: make(map[string]project.Project),
		budgets:  make(map[string]project.Budget),
		profiles: make(map[string]weights.Profile),
		states:   make(map[string]supervision.State),
		changes:  make(map[string]scopechange.Record),
		ledgers:  make(map[string]scopechange.Ledger),
	}
}

func (m *mockStore) GetProject(_ context.Context, id string) (*project.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *mockStore) GetBudget(_ context.Context, projectID string) (*project.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.budgets[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (m *mockStore) GetWeightProfile(_ context.Context, projectID string) (*weights.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *mockStore) AppendDecision(_ context.Context, d *adjudication.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendDecisionErr != nil {
		return m.appendDecisionErr
	}
	m.decisions = append(m.decisions, *d)
	return nil
}

func (m *mockStore) ListDecisions(_ context.Context, projectID string, _ int) ([]adjudication.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []adjudication.Decision
	for i := range m.decisions {
		if m.decisions[i].ProjectID == projectID {
			out = append(out, m.decisions[i])
		}
	}
	return out, nil
}

func (m *mockStore) AppendActivation(_ context.Context, a *supervision.Activation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendActivationErr != nil {
		return m.appendActivationErr
	}
	m.activations = append(m.activations, *a)
	return nil
}

func (m *mockStore) ListActivations(_ context.Context, projectID string, _ int) ([]supervision.Activation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []supervision.Activation
	for i := range m.activations {
		if m.activations[i].ProjectID == projectID {
			out = append(out, m.activations[i])
		}
	}
	return out, nil
}

func (m *mockStore) SaveAccumulatorState(_ context.Context, st supervision.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveStateErr != nil {
		return m.saveStateErr
	}
	m.states[st.ProjectID] = st
	return nil
}

func (m *mockStore) GetAccumulatorState(_ context.Context, projectID string) (*supervision.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &st, nil
}

func (m *mockStore) DeleteAccumulatorState(_ context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, projectID)
	return nil
}

func (m *mockStore) AppendScopeChange(_ context.Context, rec *scopechange.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendScopeCalls++
	if m.appendScopeErr != nil {
		return m.appendScopeErr
	}
	if _, exists := m.changes[rec.ID]; exists {
		return domain.ErrConflict
	}
	m.changes[rec.ID] = *rec

	ledger := m.ledgers[rec.ProjectID]
	ledger.ProjectID = rec.ProjectID
	ledger.TotalCreepPct += rec.EffortDeltaPct
	ledger.Records++
	ledger.UpdatedAt = rec.ClassifiedAt
	m.ledgers[rec.ProjectID] = ledger
	return nil
}

func (m *mockStore) GetScopeChange(_ context.Context, id string) (*scopechange.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.changes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (m *mockStore) ListScopeChanges(_ context.Context, projectID string, _ int) ([]scopechange.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []scopechange.Record
	for _, rec := range m.changes {
		if rec.ProjectID == projectID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockStore) GetCreepLedger(_ context.Context, projectID string) (*scopechange.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ledger, ok := m.ledgers[projectID]
	if !ok {
		ledger = scopechange.Ledger{ProjectID: projectID}
	}
	return &ledger, nil
}

func (m *mockStore) AppendDeadLetter(_ context.Context, dl *deadletter.DeadLetter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadLetters = append(m.deadLetters, *dl)
	return nil
}

func (m *mockStore) ListDeadLetters(_ context.Context, _ int) ([]deadletter.DeadLetter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]deadletter.DeadLetter(nil), m.deadLetters...), nil
}

type publishedMsg struct {
	subject string
	data    []byte
}

type mockQueue struct {
	mu         sync.Mutex
	published  []publishedMsg
	publishErr error
	handlers   map[string]messagequeue.Handler
}

func (m *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, publishedMsg{subject, data})
	return nil
}

func (m *mockQueue) Subscribe(_ context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = make(map[string]messagequeue.Handler)
	}
	m.handlers[subject] = handler
	return func() {}, nil
}

func (m *mockQueue) Drain() error      { return nil }
func (m *mockQueue) Close() error      { return nil }
func (m *mockQueue) IsConnected() bool { return true }

// subjects returns the subjects of all published messages in order.
func (m *mockQueue) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.published))
	for i, p := range m.published {
		out[i] = p.subject
	}
	return out
}

type mockCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]byte)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []notifier.Notification
	err  error
}

func (m *mockNotifier) Name() string { return "mock" }

func (m *mockNotifier) Send(_ context.Context, n notifier.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
