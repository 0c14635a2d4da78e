package metrics

import (
	"context"
	"errors"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/usecase"
)

// Decorators that count outcomes of the state-changing use cases.

var (
	_ usecase.TransitionUseCase    = (*instrumentedTransitions)(nil)
	_ usecase.StepUseCase          = (*instrumentedSteps)(nil)
	_ usecase.CertificationUseCase = (*instrumentedCertification)(nil)
	_ usecase.JobUseCase           = (*instrumentedJobs)(nil)
)

type instrumentedTransitions struct {
	inner usecase.TransitionUseCase
}

func InstrumentTransitions(inner usecase.TransitionUseCase) usecase.TransitionUseCase {
	return &instrumentedTransitions{inner: inner}
}

func (d *instrumentedTransitions) Validate(current model.State, action model.Action) (model.State, error) {
	return d.inner.Validate(current, action)
}

func (d *instrumentedTransitions) Execute(ctx context.Context, req usecase.TransitionRequest) (*model.Job, error) {
	job, err := d.inner.Execute(ctx, req)
	if err != nil {
		IncTransitionRejected(string(req.Action), Reason(err))
		return nil, err
	}
	IncTransition(string(job.State), string(req.Action))
	return job, nil
}

type instrumentedSteps struct {
	inner usecase.StepUseCase
}

func InstrumentSteps(inner usecase.StepUseCase) usecase.StepUseCase {
	return &instrumentedSteps{inner: inner}
}

func (d *instrumentedSteps) CompleteStep(ctx context.Context, jobID string, in usecase.CompleteStepInput) (*model.StepCompletion, error) {
	sc, err := d.inner.CompleteStep(ctx, jobID, in)
	if err != nil {
		IncTransitionRejected("complete_step", Reason(err))
		return nil, err
	}
	IncStepCompletion(string(sc.StateCode))
	return sc, nil
}

func (d *instrumentedSteps) ListCurrent(ctx context.Context, jobID string) ([]*model.StepCompletion, error) {
	return d.inner.ListCurrent(ctx, jobID)
}

type instrumentedCertification struct {
	inner usecase.CertificationUseCase
}

func InstrumentCertification(inner usecase.CertificationUseCase) usecase.CertificationUseCase {
	return &instrumentedCertification{inner: inner}
}

func (d *instrumentedCertification) Certify(ctx context.Context, jobID string, in usecase.CertifyInput) (*model.Job, error) {
	job, err := d.inner.Certify(ctx, jobID, in)
	if err != nil {
		IncTransitionRejected("certify", Reason(err))
		return nil, err
	}
	IncTransition(string(job.State), string(model.ActionAdvance))
	IncCertification(in.FinalGrade)
	return job, nil
}

type instrumentedJobs struct {
	usecase.JobUseCase
}

// InstrumentJobs counts intake and assignment; read paths pass through.
func InstrumentJobs(inner usecase.JobUseCase) usecase.JobUseCase {
	return &instrumentedJobs{JobUseCase: inner}
}

func (d *instrumentedJobs) Create(ctx context.Context, p model.NewJobParams) (*model.Job, error) {
	job, err := d.JobUseCase.Create(ctx, p)
	if err != nil {
		IncTransitionRejected(string(model.ActionCreate), Reason(err))
		return nil, err
	}
	IncTransition(string(job.State), string(model.ActionCreate))
	return job, nil
}

func (d *instrumentedJobs) Assign(ctx context.Context, jobID, technicianID, technicianName string) (*model.Job, error) {
	job, err := d.JobUseCase.Assign(ctx, jobID, technicianID, technicianName)
	if err != nil {
		IncTransitionRejected(string(model.ActionAssign), Reason(err))
		return nil, err
	}
	if job.State == model.StateAssigned {
		IncTransition(string(job.State), string(model.ActionAssign))
	}
	return job, nil
}

// Reason maps an error to a bounded label value.
func Reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrMaxAttemptsExceeded):
		return "max_attempts_exceeded"
	case errors.Is(err, domain.ErrInvalidStateForCertification):
		return "invalid_state_for_certification"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrDuplicateIdentity):
		return "duplicate_identity"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
