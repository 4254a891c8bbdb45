// Package project defines the project entity and its budget record as
// seen by the decision engine. Projects are owned by an external CRUD
// collaborator; this engine only reads them.
package project

import "time"

// Project is the unit of isolation for all supervision state.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Budget is the project's budget and tier record. It supplies the
// normalization denominators for adjudication and the supervision tier.
// The tier can change over the project's lifetime (e.g. the user adds
// funds); the change takes effect for subsequent evaluations only.
type Budget struct {
	ProjectID            string    `json:"project_id"`
	Tier                 string    `json:"tier"`
	BudgetRemainingUSD   float64   `json:"budget_remaining_usd"`
	ScheduleSlackHours   float64   `json:"schedule_slack_hours"`
	VarianceTolerancePct float64   `json:"variance_tolerance_pct"`
	UpdatedAt            time.Time `json:"updated_at"`
}
