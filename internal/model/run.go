package model

import "time"

// RunStatus represents the lifecycle state of a verification run.
type RunStatus string

const (
	RunStatusPending    RunStatus = "PENDING"
	RunStatusInProgress RunStatus = "IN_PROGRESS"
	RunStatusCompleted  RunStatus = "COMPLETED"
	RunStatusFailed     RunStatus = "FAILED"
)

// Terminal reports whether the status is a final state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// RiskCategory is the categorical label derived from the numeric risk score.
type RiskCategory string

const (
	RiskLow    RiskCategory = "LOW"
	RiskMedium RiskCategory = "MEDIUM"
	RiskHigh   RiskCategory = "HIGH"
)

// VerificationRun records one verification attempt for a company. Runs are
// append-only history: the engine never deletes them, and only the
// orchestrator mutates them.
type VerificationRun struct {
	ID           string       `json:"id"`
	CompanyID    string       `json:"company_id"`
	RiskScore    int          `json:"risk_score"`
	RiskCategory RiskCategory `json:"risk_category"`
	Status       RunStatus    `json:"status"`
	Error        string       `json:"error,omitempty"`
	Result       *RunResult   `json:"result,omitempty"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
