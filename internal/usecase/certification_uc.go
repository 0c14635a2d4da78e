package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
)

// Compile-time check
var _ CertificationUseCase = (*certificationUC)(nil)

type CertificationUseCase interface {
	// Certify moves a FINAL_TEST_PASSED job to CERTIFIED with its grade and
	// warranty outcome. Any other state fails without mutation.
	Certify(ctx context.Context, jobID string, in CertifyInput) (*model.Job, error)
}

type CertifyInput struct {
	TechnicianID     string
	FinalGrade       string
	WarrantyEligible bool
	Notes            *string
}

type certificationUC struct {
	transitions *transitionUC
	log         *zerolog.Logger
}

func NewCertificationUseCase(transitions *transitionUC, logger *zerolog.Logger) *certificationUC {
	l := logger.With().Str("component", "CertificationUseCase").Logger()
	return &certificationUC{transitions: transitions, log: &l}
}

func (uc *certificationUC) Certify(ctx context.Context, jobID string, in CertifyInput) (*model.Job, error) {
	grade := strings.TrimSpace(in.FinalGrade)
	if grade == "" {
		return nil, domain.InvalidArgument("final grade is required for certification")
	}
	warranty := in.WarrantyEligible
	req := TransitionRequest{
		JobID:        jobID,
		Action:       model.ActionAdvance,
		TechnicianID: strPtr(strings.TrimSpace(in.TechnicianID)),
		Payload: &model.TransitionPayload{
			FinalGrade:       &grade,
			WarrantyEligible: &warranty,
			Notes:            in.Notes,
		},
	}
	// The state check runs on the locked row so a concurrent transition
	// cannot slip between the check and the write.
	res, err := uc.transitions.execute(ctx, req, func(job *model.Job) error {
		if job.State != model.StateFinalTestPassed {
			return &domain.WorkflowError{
				Kind:   domain.ErrInvalidStateForCertification,
				JobID:  job.ID,
				State:  string(job.State),
				Action: "CERTIFY",
				Detail: "job must be in " + string(model.StateFinalTestPassed),
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("job_id", jobID).Str("grade", grade).Bool("warranty_eligible", warranty).Msg("job certified")
	return res.Job, nil
}
