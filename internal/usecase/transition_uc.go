package usecase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/domain/ports/adapter"
	"refurb-workflow/internal/domain/ports/repository"
	"refurb-workflow/internal/domain/workflow"
	"refurb-workflow/internal/infra/logging"
)

// Compile-time check
var _ TransitionUseCase = (*transitionUC)(nil)

type TransitionUseCase interface {
	// Validate reports the state action would lead to from current, without side effects.
	// Resume edges report the hold state itself since the target depends on the job.
	Validate(current model.State, action model.Action) (model.State, error)
	// Execute applies action to the job atomically with its audit entry.
	Execute(ctx context.Context, req TransitionRequest) (*model.Job, error)
}

type transitionUC struct {
	exec *executor
	tm   repository.TransactionManager
	log  *zerolog.Logger
}

func NewTransitionUseCase(
	jobs repository.JobRepository,
	logs repository.TransitionLogRepository,
	steps repository.StepCompletionRepository,
	techs adapter.TechnicianDirectory,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *transitionUC {
	l := logger.With().Str("component", "TransitionUseCase").Logger()
	return &transitionUC{
		exec: newExecutor(jobs, logs, steps, techs),
		tm:   tm,
		log:  &l,
	}
}

func (uc *transitionUC) Validate(current model.State, action model.Action) (model.State, error) {
	e, err := workflow.Validate(current, action)
	if err != nil {
		return "", err
	}
	if e.Resume {
		return current, nil
	}
	return e.Target, nil
}

func (uc *transitionUC) Execute(ctx context.Context, req TransitionRequest) (*model.Job, error) {
	res, err := uc.execute(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	return res.Job, nil
}

// execute runs guard (if any) against the locked job before applying req.
func (uc *transitionUC) execute(ctx context.Context, req TransitionRequest, guard func(*model.Job) error) (*TransitionResult, error) {
	defer logging.TraceDuration(uc.log, "TransitionUseCase.Execute")()
	if !req.Action.IsValid() {
		return nil, domain.InvalidArgument("unknown action %q", req.Action)
	}

	var res *TransitionResult
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		job, err := uc.exec.loadForUpdate(ctx, tx, req.JobID)
		if err != nil {
			return err
		}
		tech, err := uc.exec.checkTechnician(ctx, req.TechnicianID)
		if err != nil {
			return err
		}
		if req.Action == model.ActionAssign && req.TechnicianID != nil && *req.TechnicianID != "" {
			job.TechnicianID = req.TechnicianID
			if tech != nil {
				job.TechnicianName = &tech.Name
			}
		}
		if guard != nil {
			if err := guard(job); err != nil {
				return err
			}
		}
		res, err = uc.exec.apply(ctx, tx, job, req)
		return err
	})

	l := logging.With(logging.WithJobID(ctx, req.JobID), uc.log)
	if err != nil {
		if isRejection(err) {
			l.Warn().Err(err).Str("action", string(req.Action)).Msg("transition rejected")
		} else {
			l.Error().Err(err).Str("action", string(req.Action)).Msg("transition failed")
		}
		return nil, err
	}
	l.Info().
		Str("action", string(req.Action)).
		Str("from", string(*res.Entry.FromState)).
		Str("to", string(res.Entry.ToState)).
		Int("attempt_count", res.Job.AttemptCount).
		Msg("job transitioned")
	return res, nil
}

// isRejection separates caller mistakes from storage failures.
func isRejection(err error) bool {
	return errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrMaxAttemptsExceeded) ||
		errors.Is(err, domain.ErrInvalidStateForCertification) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidArgument)
}
