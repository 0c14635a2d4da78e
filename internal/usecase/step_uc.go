package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/domain/ports/adapter"
	"refurb-workflow/internal/domain/ports/repository"
	"refurb-workflow/internal/infra/logging"
)

// Compile-time check
var _ StepUseCase = (*stepUC)(nil)

type StepUseCase interface {
	// CompleteStep records a step against the job's current state and
	// refreshes its step index. Re-submitting a step overwrites it.
	CompleteStep(ctx context.Context, jobID string, in CompleteStepInput) (*model.StepCompletion, error)
	// ListCurrent returns the completions that count for the job's active state visit.
	ListCurrent(ctx context.Context, jobID string) ([]*model.StepCompletion, error)
}

type CompleteStepInput struct {
	StepCode       string
	TechnicianID   string
	TechnicianName string
	Data           model.StepData
}

type stepUC struct {
	jobs    repository.JobRepository
	steps   repository.StepCompletionRepository
	catalog adapter.StepCatalog // optional
	exec    *executor
	tm      repository.TransactionManager
	log     *zerolog.Logger
}

func NewStepUseCase(
	jobs repository.JobRepository,
	logs repository.TransitionLogRepository,
	steps repository.StepCompletionRepository,
	catalog adapter.StepCatalog,
	techs adapter.TechnicianDirectory,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *stepUC {
	l := logger.With().Str("component", "StepUseCase").Logger()
	return &stepUC{
		jobs:    jobs,
		steps:   steps,
		catalog: catalog,
		exec:    newExecutor(jobs, logs, steps, techs),
		tm:      tm,
		log:     &l,
	}
}

func (uc *stepUC) CompleteStep(ctx context.Context, jobID string, in CompleteStepInput) (*model.StepCompletion, error) {
	defer logging.TraceDuration(uc.log, "StepUseCase.CompleteStep")()

	var out *model.StepCompletion
	var index int
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		job, err := uc.exec.loadForUpdate(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if job.State.IsTerminal() {
			return &domain.WorkflowError{
				Kind:   domain.ErrInvalidTransition,
				JobID:  job.ID,
				State:  string(job.State),
				Detail: "steps cannot be recorded on a closed job",
			}
		}
		techID := strings.TrimSpace(in.TechnicianID)
		tech, err := uc.exec.checkTechnician(ctx, &techID)
		if err != nil {
			return err
		}
		name := in.TechnicianName
		if name == "" && tech != nil {
			name = tech.Name
		}
		if err := uc.checkCatalog(ctx, job, in); err != nil {
			return err
		}

		now := uc.exec.now()
		sc, err := model.NewStepCompletion(job, in.StepCode, techID, name, in.Data, now)
		if err != nil {
			return err
		}
		if err := uc.steps.Upsert(ctx, tx, sc); err != nil {
			return err
		}
		index, err = uc.steps.CountDistinct(ctx, tx, job.ID, job.State, job.AttemptCount)
		if err != nil {
			return err
		}
		if err := uc.jobs.UpdateStepIndex(ctx, tx, job.ID, index, now); err != nil {
			return err
		}
		out = sc
		return nil
	})

	l := logging.With(logging.WithJobID(ctx, jobID), uc.log)
	if err != nil {
		l.Warn().Err(err).Str("step", in.StepCode).Msg("complete step failed")
		return nil, err
	}
	l.Info().Str("state", string(out.StateCode)).Str("step", out.StepCode).Int("step_index", index).Msg("step completed")
	return out, nil
}

// checkCatalog rejects unknown steps and invalid inputs when the SOP
// catalog defines steps for the job's current state.
func (uc *stepUC) checkCatalog(ctx context.Context, job *model.Job, in CompleteStepInput) error {
	if uc.catalog == nil {
		return nil
	}
	steps, err := uc.catalog.Steps(ctx, job.Category, job.State)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return nil
	}
	code := strings.TrimSpace(in.StepCode)
	codes := make([]string, 0, len(steps))
	for _, s := range steps {
		if s.Code == code {
			if err := uc.catalog.ValidateInputs(s, in.Data.Inputs); err != nil {
				if errors.Is(err, domain.ErrInvalidArgument) {
					return err
				}
				return domain.InvalidArgument("step %s inputs: %v", code, err)
			}
			return nil
		}
		codes = append(codes, s.Code)
	}
	return &domain.WorkflowError{
		Kind:   domain.ErrInvalidArgument,
		JobID:  job.ID,
		State:  string(job.State),
		Detail: "unknown step " + code + ", expected one of " + strings.Join(codes, ", "),
	}
}

func (uc *stepUC) ListCurrent(ctx context.Context, jobID string) ([]*model.StepCompletion, error) {
	job, err := uc.jobs.FindByID(ctx, repository.NoTX, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("job", jobID)
		}
		return nil, err
	}
	return uc.steps.ListByJobState(ctx, repository.NoTX, job.ID, job.State, job.AttemptCount)
}
