// Package jobs runs verifications in the background, either in-process or on
// a Temporal task queue.
package jobs

import (
	"context"
	"time"

	"github.com/praxis-labs/veracity/internal/model"
)

// State is the lifecycle state of a background job.
type State string

const (
	StatePending State = "PENDING"
	StateStarted State = "STARTED"
	StateRetry   State = "RETRY"
	StateRevoked State = "REVOKED"
	StateSuccess State = "SUCCESS"
	StateFailure State = "FAILURE"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateRevoked || s == StateSuccess || s == StateFailure
}

// Job is a background verification request and its progress.
type Job struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id"`
	RunID       string     `json:"run_id,omitempty"`
	State       State      `json:"state"`
	Error       string     `json:"error,omitempty"`
	RiskScore   int        `json:"risk_score,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Runner schedules verifications off the request path.
type Runner interface {
	// Submit queues a verification and returns a job ID immediately.
	// timeout bounds the verification itself; zero means the default.
	Submit(ctx context.Context, companyID string, timeout time.Duration) (string, error)
	Status(ctx context.Context, jobID string) (*Job, error)
	Cancel(ctx context.Context, jobID string) error
}

// Verifier is the slice of the orchestrator a runner needs.
type Verifier interface {
	Verify(ctx context.Context, companyID string) (*model.VerificationRun, error)
}

// DefaultTimeout bounds a single verification when the caller gives none.
const DefaultTimeout = 2 * time.Hour
