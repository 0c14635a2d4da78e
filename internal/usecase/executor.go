package usecase

import (
	"context"
	"errors"
	"time"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/domain/ports/adapter"
	"refurb-workflow/internal/domain/ports/repository"
	"refurb-workflow/internal/domain/workflow"
)

// TransitionRequest asks the executor to apply one action to one job.
type TransitionRequest struct {
	JobID        string
	Action       model.Action
	TechnicianID *string
	Payload      *model.TransitionPayload
}

// TransitionResult is the refreshed job plus the log entry that recorded it.
type TransitionResult struct {
	Job   *model.Job
	Entry *model.TransitionLogEntry
}

// executor applies validated transitions inside a caller-provided transaction.
// It is shared by every use case that moves a job between states.
type executor struct {
	jobs  repository.JobRepository
	logs  repository.TransitionLogRepository
	steps repository.StepCompletionRepository
	techs adapter.TechnicianDirectory // optional
	now   func() time.Time
}

func newExecutor(jobs repository.JobRepository, logs repository.TransitionLogRepository, steps repository.StepCompletionRepository, techs adapter.TechnicianDirectory) *executor {
	return &executor{jobs: jobs, logs: logs, steps: steps, techs: techs, now: func() time.Time { return time.Now().UTC() }}
}

// loadForUpdate locks the job row for the rest of tx.
func (e *executor) loadForUpdate(ctx context.Context, tx repository.Tx, jobID string) (*model.Job, error) {
	job, err := e.jobs.FindByIDForUpdate(ctx, tx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("job", jobID)
		}
		return nil, err
	}
	return job, nil
}

// checkTechnician validates id against the directory when one is configured.
func (e *executor) checkTechnician(ctx context.Context, id *string) (*model.Technician, error) {
	if e.techs == nil || id == nil || *id == "" {
		return nil, nil
	}
	t, err := e.techs.Lookup(ctx, *id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("technician", *id)
		}
		return nil, err
	}
	return t, nil
}

// apply validates req against the table for the already-locked job, mutates
// it, persists it and appends the log entry. Nothing is written on error.
func (e *executor) apply(ctx context.Context, tx repository.Tx, job *model.Job, req TransitionRequest) (*TransitionResult, error) {
	edge, err := workflow.Validate(job.State, req.Action)
	if err != nil {
		return nil, withJob(err, job.ID)
	}
	if req.Action == model.ActionRetry && job.AttemptCount >= job.MaxAttempts {
		return nil, &domain.WorkflowError{
			Kind:         domain.ErrMaxAttemptsExceeded,
			JobID:        job.ID,
			State:        string(job.State),
			Action:       string(req.Action),
			AttemptCount: job.AttemptCount,
			MaxAttempts:  job.MaxAttempts,
		}
	}
	target, err := workflow.ResolveTarget(job.State, edge, job.HeldFromState)
	if err != nil {
		return nil, withJob(err, job.ID)
	}

	now := e.now()
	from := job.State
	updated := job.Clone()
	updated.State = target
	updated.HeldFromState = workflow.NextHeldFrom(from, target, job.HeldFromState)
	if req.Action == model.ActionRetry {
		updated.AttemptCount++
	}
	if target == model.StateInProgress && updated.StartedAt == nil {
		updated.StartedAt = &now
	}
	if target.IsTerminal() && updated.CompletedAt == nil {
		updated.CompletedAt = &now
	}
	if p := req.Payload; p != nil {
		if p.FinalGrade != nil {
			updated.FinalGrade = p.FinalGrade
		}
		if p.WarrantyEligible != nil {
			updated.WarrantyEligible = p.WarrantyEligible
		}
		if p.DispositionReason != nil {
			updated.DispositionReason = p.DispositionReason
		}
	}
	updated.UpdatedAt = now

	// Fresh visits and RETRY re-entries count zero; RESOLVE keeps the
	// steps already done for the resumed state.
	idx, err := e.steps.CountDistinct(ctx, tx, updated.ID, updated.State, updated.AttemptCount)
	if err != nil {
		return nil, err
	}
	updated.CurrentStepIndex = idx

	if err := e.jobs.Update(ctx, tx, updated); err != nil {
		return nil, err
	}

	var notes *string
	if req.Payload != nil {
		notes = req.Payload.Notes
	}
	entry := model.NewTransitionLogEntry(updated.ID, &from, target, req.Action, req.TechnicianID, notes, now)
	if err := e.logs.Append(ctx, tx, entry); err != nil {
		return nil, err
	}
	return &TransitionResult{Job: updated, Entry: entry}, nil
}

func withJob(err error, jobID string) error {
	var we *domain.WorkflowError
	if errors.As(err, &we) && we.JobID == "" {
		cp := *we
		cp.JobID = jobID
		return &cp
	}
	return err
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
