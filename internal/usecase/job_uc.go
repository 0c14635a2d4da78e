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
	"refurb-workflow/internal/domain/workflow"
	"refurb-workflow/internal/infra/logging"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

type JobUseCase interface {
	Create(ctx context.Context, p model.NewJobParams) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	GetByUnitID(ctx context.Context, unitID string) (*model.Job, error)
	List(ctx context.Context, filter model.JobFilter) ([]*model.Job, error)
	// Assign sets the technician. A queued job moves to ASSIGNED; a job
	// already underway is reassigned in place.
	Assign(ctx context.Context, jobID, technicianID, technicianName string) (*model.Job, error)
	History(ctx context.Context, jobID string) ([]*model.TransitionLogEntry, error)
	// VerifyHistory replays the transition log and compares it to the stored state.
	VerifyHistory(ctx context.Context, jobID string) (*HistoryCheck, error)
}

// HistoryCheck is the outcome of replaying a job's transition log.
type HistoryCheck struct {
	JobID       string
	Stored      model.State
	Replayed    model.State
	Entries     int
	Consistent  bool
	ReplayError string
}

type jobUC struct {
	jobs repository.JobRepository
	logs repository.TransitionLogRepository
	exec *executor
	tm   repository.TransactionManager

	defaultMaxAttempts int
	log                *zerolog.Logger
}

func NewJobUseCase(
	jobs repository.JobRepository,
	logs repository.TransitionLogRepository,
	steps repository.StepCompletionRepository,
	techs adapter.TechnicianDirectory,
	tm repository.TransactionManager,
	defaultMaxAttempts int,
	logger *zerolog.Logger,
) *jobUC {
	if defaultMaxAttempts < 1 {
		defaultMaxAttempts = model.DefaultMaxAttempts
	}
	l := logger.With().Str("component", "JobUseCase").Logger()
	return &jobUC{
		jobs:               jobs,
		logs:               logs,
		exec:               newExecutor(jobs, logs, steps, techs),
		tm:                 tm,
		defaultMaxAttempts: defaultMaxAttempts,
		log:                &l,
	}
}

func (uc *jobUC) Create(ctx context.Context, p model.NewJobParams) (*model.Job, error) {
	defer logging.TraceDuration(uc.log, "JobUseCase.Create")()
	if p.MaxAttempts == 0 {
		p.MaxAttempts = uc.defaultMaxAttempts
	}
	job, err := model.NewJob(p)
	if err != nil {
		return nil, err
	}

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.jobs.Create(ctx, tx, job); err != nil {
			if errors.Is(err, domain.ErrDuplicateIdentity) {
				return &domain.WorkflowError{Kind: domain.ErrDuplicateIdentity, Detail: "unit " + job.UnitID}
			}
			return err
		}
		entry := model.NewTransitionLogEntry(job.ID, nil, job.State, model.ActionCreate, nil, nil, job.CreatedAt)
		return uc.logs.Append(ctx, tx, entry)
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("unit_id", job.UnitID).Msg("create job failed")
		return nil, err
	}
	uc.log.Info().Str("job_id", job.ID).Str("unit_id", job.UnitID).Str("category", job.Category).Msg("job created")
	return job, nil
}

func (uc *jobUC) Get(ctx context.Context, id string) (*model.Job, error) {
	job, err := uc.jobs.FindByID(ctx, repository.NoTX, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("job", id)
	}
	return job, err
}

func (uc *jobUC) GetByUnitID(ctx context.Context, unitID string) (*model.Job, error) {
	unitID = strings.TrimSpace(unitID)
	job, err := uc.jobs.FindByUnitID(ctx, repository.NoTX, unitID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("unit", unitID)
	}
	return job, err
}

func (uc *jobUC) List(ctx context.Context, filter model.JobFilter) ([]*model.Job, error) {
	if filter.State != "" && !filter.State.IsValid() {
		return nil, domain.InvalidArgument("unknown state %q", filter.State)
	}
	if filter.Priority != "" && !filter.Priority.IsValid() {
		return nil, domain.InvalidArgument("unknown priority %q", filter.Priority)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, domain.InvalidArgument("limit and offset must not be negative")
	}
	return uc.jobs.List(ctx, repository.NoTX, filter)
}

func (uc *jobUC) Assign(ctx context.Context, jobID, technicianID, technicianName string) (*model.Job, error) {
	defer logging.TraceDuration(uc.log, "JobUseCase.Assign")()
	technicianID = strings.TrimSpace(technicianID)
	if technicianID == "" {
		return nil, domain.InvalidArgument("technician id is required")
	}

	var out *model.Job
	var transitioned bool
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		job, err := uc.exec.loadForUpdate(ctx, tx, jobID)
		if err != nil {
			return err
		}
		tech, err := uc.exec.checkTechnician(ctx, &technicianID)
		if err != nil {
			return err
		}
		name := strings.TrimSpace(technicianName)
		if name == "" && tech != nil {
			name = tech.Name
		}
		if job.State.IsTerminal() {
			return &domain.WorkflowError{
				Kind:   domain.ErrInvalidTransition,
				JobID:  job.ID,
				State:  string(job.State),
				Action: string(model.ActionAssign),
				Detail: "job is closed",
			}
		}

		job.TechnicianID = &technicianID
		job.TechnicianName = strPtr(name)

		if job.State == model.StateQueued {
			res, err := uc.exec.apply(ctx, tx, job, TransitionRequest{
				JobID:        job.ID,
				Action:       model.ActionAssign,
				TechnicianID: &technicianID,
			})
			if err != nil {
				return err
			}
			out, transitioned = res.Job, true
			return nil
		}

		job.UpdatedAt = uc.exec.now()
		if err := uc.jobs.Update(ctx, tx, job); err != nil {
			return err
		}
		out = job
		return nil
	})

	l := logging.With(logging.WithTechnicianID(logging.WithJobID(ctx, jobID), technicianID), uc.log)
	if err != nil {
		l.Warn().Err(err).Msg("assign failed")
		return nil, err
	}
	l.Info().Bool("transitioned", transitioned).Str("state", string(out.State)).Msg("technician assigned")
	return out, nil
}

func (uc *jobUC) History(ctx context.Context, jobID string) ([]*model.TransitionLogEntry, error) {
	if _, err := uc.Get(ctx, jobID); err != nil {
		return nil, err
	}
	return uc.logs.ListByJob(ctx, repository.NoTX, jobID)
}

func (uc *jobUC) VerifyHistory(ctx context.Context, jobID string) (*HistoryCheck, error) {
	job, err := uc.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	entries, err := uc.logs.ListByJob(ctx, repository.NoTX, jobID)
	if err != nil {
		return nil, err
	}
	check := &HistoryCheck{JobID: jobID, Stored: job.State, Entries: len(entries)}
	replayed, err := workflow.Replay(entries)
	if err != nil {
		check.ReplayError = err.Error()
		uc.log.Error().Err(err).Str("job_id", jobID).Msg("transition log does not replay")
		return check, nil
	}
	check.Replayed = replayed
	check.Consistent = replayed == job.State
	if !check.Consistent {
		uc.log.Error().Str("job_id", jobID).Str("stored", string(job.State)).Str("replayed", string(replayed)).Msg("transition log disagrees with job state")
	}
	return check, nil
}
