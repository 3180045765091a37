package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/praxis-labs/veracity/internal/model"
)

// LocalRunner executes verifications on goroutines in the current process,
// capped by a concurrency semaphore. Job state lives in memory only.
type LocalRunner struct {
	verifier Verifier
	sem      *semaphore.Weighted

	mu      sync.Mutex
	jobs    map[string]*Job
	cancels map[string]context.CancelFunc

	wg sync.WaitGroup
}

// NewLocalRunner creates a LocalRunner running at most maxConcurrent
// verifications at once. maxConcurrent < 1 means 4.
func NewLocalRunner(verifier Verifier, maxConcurrent int) *LocalRunner {
	if maxConcurrent < 1 {
		maxConcurrent = 4
	}
	return &LocalRunner{
		verifier: verifier,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		jobs:     make(map[string]*Job),
		cancels:  make(map[string]context.CancelFunc),
	}
}

func (r *LocalRunner) Submit(_ context.Context, companyID string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	job := &Job{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		State:       StatePending,
		SubmittedAt: time.Now().UTC(),
	}

	// jobs outlive the submitting request
	jobCtx, cancel := context.WithTimeout(context.Background(), timeout)

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.cancels[job.ID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(jobCtx, job.ID, companyID)

	return job.ID, nil
}

func (r *LocalRunner) run(ctx context.Context, jobID, companyID string) {
	defer r.wg.Done()
	defer r.finishCancel(jobID)

	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.update(jobID, func(j *Job) {
			if j.State != StateRevoked {
				j.State = StateFailure
				j.Error = err.Error()
			}
			now := time.Now().UTC()
			j.FinishedAt = &now
		})
		return
	}
	defer r.sem.Release(1)

	r.update(jobID, func(j *Job) {
		now := time.Now().UTC()
		j.State = StateStarted
		j.StartedAt = &now
	})

	run, err := r.verifier.Verify(ctx, companyID)
	now := time.Now().UTC()
	r.update(jobID, func(j *Job) {
		j.FinishedAt = &now
		if j.State == StateRevoked {
			return
		}
		if err != nil {
			j.State = StateFailure
			j.Error = err.Error()
			return
		}
		j.State = StateSuccess
		j.RunID = run.ID
		j.RiskScore = run.RiskScore
	})
	if err != nil && ctx.Err() == nil {
		zap.L().Warn("background verification failed",
			zap.String("job_id", jobID),
			zap.String("company_id", companyID),
			zap.Error(err))
	}
}

func (r *LocalRunner) Status(_ context.Context, jobID string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, model.NewNotFoundError("job %s not found", jobID)
	}
	copied := *job
	return &copied, nil
}

// Cancel revokes a job. Already-finished jobs are left alone.
func (r *LocalRunner) Cancel(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return model.NewNotFoundError("job %s not found", jobID)
	}
	if job.State.Terminal() {
		return nil
	}
	job.State = StateRevoked
	if cancel, ok := r.cancels[jobID]; ok {
		cancel()
	}
	return nil
}

// Wait blocks until every submitted job has finished. Used on shutdown.
func (r *LocalRunner) Wait() {
	r.wg.Wait()
}

func (r *LocalRunner) update(jobID string, fn func(*Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[jobID]; ok {
		fn(job)
	}
}

func (r *LocalRunner) finishCancel(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.cancels[jobID]; ok {
		cancel()
		delete(r.cancels, jobID)
	}
}
