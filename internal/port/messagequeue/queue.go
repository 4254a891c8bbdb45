// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue. Returning an error
// NAKs the message so the bus redelivers it (delivery is at-least-once).
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subject constants for the NATS subjects used by arbiter.
const (
	// Inbound
	SubjectProjectEvents       = "projects.events"    // supervision event stream
	SubjectProjectCompleted    = "projects.completed" // accumulator teardown
	SubjectProjectCancelled    = "projects.cancelled" // accumulator teardown
	SubjectEstimateReady       = "estimates.ready"    // macro step ready for adjudication
	SubjectScopeChangeReported = "scope.reported"     // scope creep reports

	// Outbound
	SubjectDecisionAdjudicated  = "decisions.adjudicated"
	SubjectSupervisionActivated = "supervision.activated"
	SubjectReplanRequested      = "planning.replan" // addressed to the planner
	SubjectStepsSuspend         = "steps.suspend"   // down-tools for affected steps
	SubjectNotifications        = "notifications.events"
	SubjectDegradedMode         = "supervision.degraded" // dead-letter alert
)
