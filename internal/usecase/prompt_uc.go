package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/domain/ports/adapter"
	"refurb-workflow/internal/domain/ports/repository"
	"refurb-workflow/internal/domain/workflow"
)

// Compile-time check
var _ PromptUseCase = (*promptUC)(nil)

type PromptUseCase interface {
	// CurrentPrompt composes the prompt against a caller-supplied step list.
	CurrentPrompt(ctx context.Context, jobID string, steps []model.StepDescriptor) (*model.Prompt, error)
	// PromptForJob fetches the step list from the SOP catalog first.
	PromptForJob(ctx context.Context, jobID string) (*model.Prompt, error)
}

type promptUC struct {
	jobs    repository.JobRepository
	steps   repository.StepCompletionRepository
	catalog adapter.StepCatalog // optional
	log     *zerolog.Logger
}

func NewPromptUseCase(jobs repository.JobRepository, steps repository.StepCompletionRepository, catalog adapter.StepCatalog, logger *zerolog.Logger) *promptUC {
	l := logger.With().Str("component", "PromptUseCase").Logger()
	return &promptUC{jobs: jobs, steps: steps, catalog: catalog, log: &l}
}

func (uc *promptUC) CurrentPrompt(ctx context.Context, jobID string, steps []model.StepDescriptor) (*model.Prompt, error) {
	job, err := uc.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return uc.compose(ctx, job, steps)
}

func (uc *promptUC) PromptForJob(ctx context.Context, jobID string) (*model.Prompt, error) {
	job, err := uc.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	var steps []model.StepDescriptor
	if uc.catalog != nil {
		steps, err = uc.catalog.Steps(ctx, job.Category, job.State)
		if err != nil {
			return nil, err
		}
	}
	return uc.compose(ctx, job, steps)
}

func (uc *promptUC) load(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := uc.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("job", jobID)
		}
		return nil, err
	}
	return job, nil
}

func (uc *promptUC) compose(ctx context.Context, job *model.Job, steps []model.StepDescriptor) (*model.Prompt, error) {
	done, err := uc.steps.ListByJobState(ctx, repository.NoTX, job.ID, job.State, job.AttemptCount)
	if err != nil {
		return nil, err
	}
	return ComposePrompt(job, steps, done), nil
}

// ComposePrompt derives the technician prompt from the job, the ordered
// catalog for its state and the recorded completions. It reads nothing else.
func ComposePrompt(job *model.Job, steps []model.StepDescriptor, completions []*model.StepCompletion) *model.Prompt {
	current := make([]*model.StepCompletion, 0, len(completions))
	done := make(map[string]bool, len(completions))
	for _, sc := range completions {
		if !sc.IsCurrent(job) {
			continue
		}
		current = append(current, sc)
		done[sc.StepCode] = true
	}

	p := &model.Prompt{
		JobID:             job.ID,
		State:             job.State,
		StateDisplayName:  job.State.DisplayName(),
		Steps:             steps,
		CompletedSteps:    current,
		CurrentStepIndex:  len(steps),
		AttemptCount:      job.AttemptCount,
		MaxAttempts:       job.MaxAttempts,
		AttemptsRemaining: job.AttemptsRemaining(),
		ProgressPercent:   workflow.ProgressPercent(job.State, job.HeldFromState),
	}

	requiredLeft := false
	for i := range steps {
		if done[steps[i].Code] {
			continue
		}
		if p.CurrentStep == nil {
			p.CurrentStepIndex = i
			p.CurrentStep = &steps[i]
		}
		if steps[i].Required {
			requiredLeft = true
		}
	}

	p.CanAdvance = workflow.HasEdge(job.State, model.ActionAdvance) && !requiredLeft
	p.CanBlock = workflow.HasEdge(job.State, model.ActionBlock)
	p.CanEscalate = workflow.HasEdge(job.State, model.ActionEscalate)
	p.CanRetry = workflow.HasEdge(job.State, model.ActionRetry) && job.AttemptCount < job.MaxAttempts
	p.CanResolve = workflow.HasEdge(job.State, model.ActionResolve)
	p.CanFail = workflow.HasEdge(job.State, model.ActionFail)
	return p
}
