package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/adapter/ws"
	"github.com/arbiterhq/arbiter/internal/domain/estimate"
	"github.com/arbiterhq/arbiter/internal/domain/scopechange"
	"github.com/arbiterhq/arbiter/internal/domain/supervision"
	"github.com/arbiterhq/arbiter/internal/port/database"
	"github.com/arbiterhq/arbiter/internal/port/messagequeue"
	"github.com/arbiterhq/arbiter/internal/service"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Adjudicator *service.Adjudicator
	Supervisor  *service.Supervisor
	ScopeCreep  *service.ScopeCreep
	Store       database.Store
	Queue       messagequeue.Queue
	Hub         *ws.Hub
}

// NewHandlers creates the handler set.
func NewHandlers(adj *service.Adjudicator, sup *service.Supervisor, sc *service.ScopeCreep,
	store database.Store, queue messagequeue.Queue, hub *ws.Hub,
) *Handlers {
	return &Handlers{
		Adjudicator: adj,
		Supervisor:  sup,
		ScopeCreep:  sc,
		Store:       store,
		Queue:       queue,
		Hub:         hub,
	}
}

// Health reports service liveness and bus connectivity.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if !h.Queue.IsConnected() {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"nats_connected": h.Queue.IsConnected(),
		"ws_clients":     h.Hub.ConnectionCount(),
	})
}

// --- adjudication ---

type adjudicateRequest struct {
	StepID   string                `json:"step_id"`
	Cost     *costEstimateBody     `json:"cost"`
	Timeline *timelineEstimateBody `json:"timeline"`
	Risk     *riskEstimateBody     `json:"risk"`
}

type costEstimateBody struct {
	Tokens     int64   `json:"tokens"`
	USD        float64 `json:"usd"`
	Confidence float64 `json:"confidence"`
}

type timelineEstimateBody struct {
	Hours      float64 `json:"hours"`
	Confidence float64 `json:"confidence"`
}

type riskEstimateBody struct {
	Score      float64  `json:"score"`
	Factors    []string `json:"factors"`
	Confidence float64  `json:"confidence"`
}

// AdjudicateStep runs the go/no-go decision for a macro step estimate.
func (h *Handlers) AdjudicateStep(w http.ResponseWriter, r *http.Request) {
	projectID := urlParam(r, "id")
	req, ok := readJSON[adjudicateRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.StepID, "step_id") {
		return
	}

	est := &estimate.MacroStepEstimate{StepID: req.StepID}
	if req.Cost != nil {
		est.Cost = &estimate.Cost{Tokens: req.Cost.Tokens, USD: req.Cost.USD, Confidence: req.Cost.Confidence}
	}
	if req.Timeline != nil {
		est.Timeline = &estimate.Timeline{Hours: req.Timeline.Hours, Confidence: req.Timeline.Confidence}
	}
	if req.Risk != nil {
		est.Risk = &estimate.Risk{Score: req.Risk.Score, Factors: req.Risk.Factors, Confidence: req.Risk.Confidence}
	}

	d, err := h.Adjudicator.Adjudicate(r.Context(), projectID, est)
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// ListDecisions returns a project's decision history, newest first.
func (h *Handlers) ListDecisions(w http.ResponseWriter, r *http.Request) {
	decisions, err := h.Adjudicator.Decisions(r.Context(), urlParam(r, "id"), limitParam(r))
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, decisions)
}

// --- supervision ---

type reportEventRequest struct {
	EventID   string  `json:"event_id"`
	Kind      string  `json:"kind"`
	Magnitude float64 `json:"magnitude"`
}

// ReportEvent feeds one project event into the supervision accumulator.
// The bus is the primary intake; this endpoint exists for operator tooling
// and tests.
func (h *Handlers) ReportEvent(w http.ResponseWriter, r *http.Request) {
	projectID := urlParam(r, "id")
	req, ok := readJSON[reportEventRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Kind, "kind") {
		return
	}
	if req.EventID == "" {
		req.EventID = uuid.NewString()
	}

	act, err := h.Supervisor.RecordEvent(r.Context(), supervision.Event{
		EventID:   req.EventID,
		ProjectID: projectID,
		Kind:      supervision.EventKind(req.Kind),
		Magnitude: req.Magnitude,
		Timestamp: time.Now(),
	})
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}

	st, _ := h.Supervisor.State(r.Context(), projectID)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"activation": act,
		"state":      st,
	})
}

// GetSupervisionState returns a project's current accumulator state.
func (h *Handlers) GetSupervisionState(w http.ResponseWriter, r *http.Request) {
	projectID := urlParam(r, "id")
	st, ok := h.Supervisor.State(r.Context(), projectID)
	if !ok {
		writeError(w, http.StatusNotFound, "no supervision state for project")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListActivations returns a project's supervisor activations, newest first.
func (h *Handlers) ListActivations(w http.ResponseWriter, r *http.Request) {
	acts, err := h.Supervisor.Activations(r.Context(), urlParam(r, "id"), limitParam(r))
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, acts)
}

// --- scope changes ---

type scopeChangeRequest struct {
	ChangeID                  string  `json:"change_id"`
	ReportedStepID            string  `json:"reported_step_id"`
	EffortDeltaPct            float64 `json:"effort_delta_pct"`
	TouchesOtherMacroSteps    bool    `json:"touches_other_macro_steps"`
	NewDependenciesIntroduced bool    `json:"new_dependencies_introduced"`
}

// ReportScopeChange classifies a reported scope change.
func (h *Handlers) ReportScopeChange(w http.ResponseWriter, r *http.Request) {
	projectID := urlParam(r, "id")
	req, ok := readJSON[scopeChangeRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.ReportedStepID, "reported_step_id") {
		return
	}
	if req.EffortDeltaPct < 0 {
		writeError(w, http.StatusBadRequest, "effort_delta_pct must be non-negative")
		return
	}

	rec, err := h.ScopeCreep.Classify(r.Context(), scopechange.Change{
		ID:                        req.ChangeID,
		ProjectID:                 projectID,
		ReportedStepID:            req.ReportedStepID,
		EffortDeltaPct:            req.EffortDeltaPct,
		TouchesOtherMacroSteps:    req.TouchesOtherMacroSteps,
		NewDependenciesIntroduced: req.NewDependenciesIntroduced,
	})
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GetScopeChange returns one classified scope change.
func (h *Handlers) GetScopeChange(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ScopeCreep.Change(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "scope change not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListScopeChanges returns a project's classified scope changes, newest first.
func (h *Handlers) ListScopeChanges(w http.ResponseWriter, r *http.Request) {
	recs, err := h.ScopeCreep.Changes(r.Context(), urlParam(r, "id"), limitParam(r))
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// GetCreepLedger returns a project's cumulative scope-creep ledger.
func (h *Handlers) GetCreepLedger(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.ScopeCreep.Ledger(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, ledger)
}

// --- dead letters ---

// ListDeadLetters returns parked events for operator inspection.
func (h *Handlers) ListDeadLetters(w http.ResponseWriter, r *http.Request) {
	letters, err := h.Store.ListDeadLetters(r.Context(), limitParam(r))
	if err != nil {
		writeDomainError(w, err, "dead letters unavailable")
		return
	}
	writeJSON(w, http.StatusOK, letters)
}
