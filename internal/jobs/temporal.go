package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// TaskQueue is the Temporal task queue verifications run on.
const TaskQueue = "veracity-verifications"

// VerifyInput is the workflow input.
type VerifyInput struct {
	CompanyID string        `json:"company_id"`
	Timeout   time.Duration `json:"timeout"`
}

// VerifyOutput is the workflow result.
type VerifyOutput struct {
	RunID        string `json:"run_id"`
	RiskScore    int    `json:"risk_score"`
	RiskCategory string `json:"risk_category"`
}

// Activities hosts the activity implementations a worker registers.
type Activities struct {
	Verifier Verifier
}

// VerifyActivity runs one verification to completion.
func (a *Activities) VerifyActivity(ctx context.Context, input VerifyInput) (VerifyOutput, error) {
	run, err := a.Verifier.Verify(ctx, input.CompanyID)
	if err != nil {
		return VerifyOutput{}, err
	}
	return VerifyOutput{
		RunID:        run.ID,
		RiskScore:    run.RiskScore,
		RiskCategory: string(run.RiskCategory),
	}, nil
}

// VerifyWorkflow wraps the single verification activity with its timeout and
// a small retry budget for transient infrastructure failures.
func VerifyWorkflow(ctx workflow.Context, input VerifyInput) (VerifyOutput, error) {
	timeout := input.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	})

	var out VerifyOutput
	var a *Activities
	err := workflow.ExecuteActivity(ctx, a.VerifyActivity, input).Get(ctx, &out)
	return out, err
}

// NewWorker builds a Temporal worker serving the verification task queue.
func NewWorker(c client.Client, verifier Verifier) worker.Worker {
	w := worker.New(c, TaskQueue, worker.Options{})
	w.RegisterWorkflow(VerifyWorkflow)
	w.RegisterActivity(&Activities{Verifier: verifier})
	return w
}

// TemporalRunner schedules verifications as Temporal workflows.
type TemporalRunner struct {
	client client.Client
}

// NewTemporalRunner wraps an existing Temporal client.
func NewTemporalRunner(c client.Client) *TemporalRunner {
	return &TemporalRunner{client: c}
}

func (r *TemporalRunner) Submit(ctx context.Context, companyID string, timeout time.Duration) (string, error) {
	workflowID := "verify-" + companyID + "-" + uuid.New().String()
	_, err := r.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: TaskQueue,
	}, VerifyWorkflow, VerifyInput{CompanyID: companyID, Timeout: timeout})
	if err != nil {
		return "", eris.Wrapf(err, "jobs: start workflow for company %s", companyID)
	}
	return workflowID, nil
}

func (r *TemporalRunner) Status(ctx context.Context, jobID string) (*Job, error) {
	desc, err := r.client.DescribeWorkflowExecution(ctx, jobID, "")
	if err != nil {
		return nil, eris.Wrapf(err, "jobs: describe workflow %s", jobID)
	}

	info := desc.GetWorkflowExecutionInfo()
	job := &Job{
		ID:    jobID,
		State: stateFromWorkflowStatus(info.GetStatus()),
	}
	if t := info.GetStartTime(); t != nil {
		started := t.AsTime()
		job.SubmittedAt = started
		job.StartedAt = &started
	}
	if t := info.GetCloseTime(); t != nil {
		finished := t.AsTime()
		job.FinishedAt = &finished
	}

	if job.State == StateSuccess {
		var out VerifyOutput
		if err := r.client.GetWorkflow(ctx, jobID, "").Get(ctx, &out); err == nil {
			job.RunID = out.RunID
			job.RiskScore = out.RiskScore
		}
	}
	return job, nil
}

func (r *TemporalRunner) Cancel(ctx context.Context, jobID string) error {
	if err := r.client.CancelWorkflow(ctx, jobID, ""); err != nil {
		return eris.Wrapf(err, "jobs: cancel workflow %s", jobID)
	}
	return nil
}

func stateFromWorkflowStatus(status enumspb.WorkflowExecutionStatus) State {
	switch status {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		return StateStarted
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		return StateSuccess
	case enumspb.WORKFLOW_EXECUTION_STATUS_CANCELED, enumspb.WORKFLOW_EXECUTION_STATUS_TERMINATED:
		return StateRevoked
	case enumspb.WORKFLOW_EXECUTION_STATUS_CONTINUED_AS_NEW:
		return StateRetry
	case enumspb.WORKFLOW_EXECUTION_STATUS_FAILED, enumspb.WORKFLOW_EXECUTION_STATUS_TIMED_OUT:
		return StateFailure
	default:
		return StatePending
	}
}
