// Package service contains application services.
package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/arbiterhq/arbiter/internal/port/notifier"
)

// NotificationService fans a notification out to every registered provider.
// Escalation and degraded-mode alerts are a required side effect, so a
// failing provider is logged and skipped rather than blocking the rest.
type NotificationService struct {
	providers []notifier.Notifier
	sources   map[string]bool
}

// NewNotificationService builds the fan-out over the given providers.
// enabledSources filters by Notification.Source; nil or empty means all
// sources are delivered.
func NewNotificationService(providers []notifier.Notifier, enabledSources []string) *NotificationService {
	sources := make(map[string]bool, len(enabledSources))
	for _, s := range enabledSources {
		sources[s] = true
	}
	return &NotificationService{providers: providers, sources: sources}
}

// Notify delivers n to every provider concurrently and returns once all
// deliveries have finished or failed.
func (s *NotificationService) Notify(ctx context.Context, n notifier.Notification) {
	if len(s.sources) > 0 && !s.sources[n.Source] {
		return
	}

	var wg sync.WaitGroup
	for _, p := range s.providers {
		wg.Add(1)
		go func(p notifier.Notifier) {
			defer wg.Done()
			if err := p.Send(ctx, n); err != nil {
				slog.Warn("notification send failed",
					"provider", p.Name(),
					"source", n.Source,
					"title", n.Title,
					"error", err,
				)
				return
			}
			slog.Debug("notification sent", "provider", p.Name(), "title", n.Title)
		}(p)
	}
	wg.Wait()
}

// NotifierCount returns the number of registered providers.
func (s *NotificationService) NotifierCount() int {
	return len(s.providers)
}
