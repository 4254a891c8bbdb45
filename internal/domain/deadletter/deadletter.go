// Package deadletter defines the parking record for events whose side
// effects could not be persisted after retries. Undercounting supervision
// weight is a safety issue, so failed events are parked and alerted on,
// never silently dropped.
package deadletter

import (
	"encoding/json"
	"time"
)

// DeadLetter is one parked event awaiting operator attention.
type DeadLetter struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"project_id"`
	Subject   string          `json:"subject"`
	Payload   json.RawMessage `json:"payload"`
	Reason    string          `json:"reason"`
	FailedAt  time.Time       `json:"failed_at"`
}
