package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/domain/ports/adapter"
	"refurb-workflow/internal/domain/ports/repository"
)

// Compile-time check
var _ DiagnosisUseCase = (*diagnosisUC)(nil)

// DiagnosisUseCase records advisory defect findings. It never changes job state.
type DiagnosisUseCase interface {
	Add(ctx context.Context, jobID string, p model.NewDiagnosisParams) (*model.Diagnosis, error)
	List(ctx context.Context, jobID string) ([]*model.Diagnosis, error)
}

type diagnosisUC struct {
	jobs      repository.JobRepository
	diagnoses repository.DiagnosisRepository
	techs     adapter.TechnicianDirectory // optional
	log       *zerolog.Logger
}

func NewDiagnosisUseCase(jobs repository.JobRepository, diagnoses repository.DiagnosisRepository, techs adapter.TechnicianDirectory, logger *zerolog.Logger) *diagnosisUC {
	l := logger.With().Str("component", "DiagnosisUseCase").Logger()
	return &diagnosisUC{jobs: jobs, diagnoses: diagnoses, techs: techs, log: &l}
}

func (uc *diagnosisUC) Add(ctx context.Context, jobID string, p model.NewDiagnosisParams) (*model.Diagnosis, error) {
	if err := uc.ensureJob(ctx, jobID); err != nil {
		return nil, err
	}
	if uc.techs != nil && p.TechnicianID != "" {
		if _, err := uc.techs.Lookup(ctx, p.TechnicianID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.NotFound("technician", p.TechnicianID)
			}
			return nil, err
		}
	}
	d, err := model.NewDiagnosis(jobID, p, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := uc.diagnoses.Save(ctx, repository.NoTX, d); err != nil {
		uc.log.Error().Err(err).Str("job_id", jobID).Msg("save diagnosis failed")
		return nil, err
	}
	uc.log.Info().Str("job_id", jobID).Str("defect", d.DefectCode).Str("severity", string(d.Severity)).Msg("diagnosis recorded")
	return d, nil
}

func (uc *diagnosisUC) List(ctx context.Context, jobID string) ([]*model.Diagnosis, error) {
	if err := uc.ensureJob(ctx, jobID); err != nil {
		return nil, err
	}
	return uc.diagnoses.ListByJob(ctx, repository.NoTX, jobID)
}

func (uc *diagnosisUC) ensureJob(ctx context.Context, jobID string) error {
	if _, err := uc.jobs.FindByID(ctx, repository.NoTX, jobID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("job", jobID)
		}
		return err
	}
	return nil
}
