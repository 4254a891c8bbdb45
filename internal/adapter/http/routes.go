package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/ws", h.Hub.HandleWS)

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Adjudication (nested under projects)
		r.Post("/projects/{id}/adjudicate", h.AdjudicateStep)
		r.Get("/projects/{id}/decisions", h.ListDecisions)

		// Supervision (nested under projects)
		r.Post("/projects/{id}/events", h.ReportEvent)
		r.Get("/projects/{id}/supervision", h.GetSupervisionState)
		r.Get("/projects/{id}/activations", h.ListActivations)

		// Scope changes (nested under projects + direct access)
		r.Post("/projects/{id}/scope-changes", h.ReportScopeChange)
		r.Get("/projects/{id}/scope-changes", h.ListScopeChanges)
		r.Get("/projects/{id}/creep-ledger", h.GetCreepLedger)
		r.Get("/scope-changes/{id}", h.GetScopeChange)

		// Dead letters (operator tooling)
		r.Get("/dead-letters", h.ListDeadLetters)
	})
}
