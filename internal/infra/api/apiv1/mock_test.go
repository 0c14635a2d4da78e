//go:build !integration

package apiv1_test

import (
	"context"

	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/usecase"
)

// --- Func-field use case mocks ---

type mockJobs struct {
	CreateFunc        func(ctx context.Context, p model.NewJobParams) (*model.Job, error)
	GetFunc           func(ctx context.Context, id string) (*model.Job, error)
	GetByUnitIDFunc   func(ctx context.Context, unitID string) (*model.Job, error)
	ListFunc          func(ctx context.Context, f model.JobFilter) ([]*model.Job, error)
	AssignFunc        func(ctx context.Context, jobID, techID, techName string) (*model.Job, error)
	HistoryFunc       func(ctx context.Context, jobID string) ([]*model.TransitionLogEntry, error)
	VerifyHistoryFunc func(ctx context.Context, jobID string) (*usecase.HistoryCheck, error)
}

var _ usecase.JobUseCase = (*mockJobs)(nil)

func (m *mockJobs) Create(ctx context.Context, p model.NewJobParams) (*model.Job, error) {
	return m.CreateFunc(ctx, p)
}
func (m *mockJobs) Get(ctx context.Context, id string) (*model.Job, error) {
	return m.GetFunc(ctx, id)
}
func (m *mockJobs) GetByUnitID(ctx context.Context, unitID string) (*model.Job, error) {
	return m.GetByUnitIDFunc(ctx, unitID)
}
func (m *mockJobs) List(ctx context.Context, f model.JobFilter) ([]*model.Job, error) {
	return m.ListFunc(ctx, f)
}
func (m *mockJobs) Assign(ctx context.Context, jobID, techID, techName string) (*model.Job, error) {
	return m.AssignFunc(ctx, jobID, techID, techName)
}
func (m *mockJobs) History(ctx context.Context, jobID string) ([]*model.TransitionLogEntry, error) {
	return m.HistoryFunc(ctx, jobID)
}
func (m *mockJobs) VerifyHistory(ctx context.Context, jobID string) (*usecase.HistoryCheck, error) {
	return m.VerifyHistoryFunc(ctx, jobID)
}

type mockTransitions struct {
	ExecuteFunc func(ctx context.Context, req usecase.TransitionRequest) (*model.Job, error)
}

var _ usecase.TransitionUseCase = (*mockTransitions)(nil)

func (m *mockTransitions) Validate(current model.State, action model.Action) (model.State, error) {
	return current, nil
}
func (m *mockTransitions) Execute(ctx context.Context, req usecase.TransitionRequest) (*model.Job, error) {
	return m.ExecuteFunc(ctx, req)
}

type mockSteps struct {
	CompleteStepFunc func(ctx context.Context, jobID string, in usecase.CompleteStepInput) (*model.StepCompletion, error)
	ListCurrentFunc  func(ctx context.Context, jobID string) ([]*model.StepCompletion, error)
}

var _ usecase.StepUseCase = (*mockSteps)(nil)

func (m *mockSteps) CompleteStep(ctx context.Context, jobID string, in usecase.CompleteStepInput) (*model.StepCompletion, error) {
	return m.CompleteStepFunc(ctx, jobID, in)
}
func (m *mockSteps) ListCurrent(ctx context.Context, jobID string) ([]*model.StepCompletion, error) {
	return m.ListCurrentFunc(ctx, jobID)
}

type mockPrompts struct {
	CurrentPromptFunc func(ctx context.Context, jobID string, steps []model.StepDescriptor) (*model.Prompt, error)
	PromptForJobFunc  func(ctx context.Context, jobID string) (*model.Prompt, error)
}

var _ usecase.PromptUseCase = (*mockPrompts)(nil)

func (m *mockPrompts) CurrentPrompt(ctx context.Context, jobID string, steps []model.StepDescriptor) (*model.Prompt, error) {
	return m.CurrentPromptFunc(ctx, jobID, steps)
}
func (m *mockPrompts) PromptForJob(ctx context.Context, jobID string) (*model.Prompt, error) {
	return m.PromptForJobFunc(ctx, jobID)
}

type mockCertification struct {
	CertifyFunc func(ctx context.Context, jobID string, in usecase.CertifyInput) (*model.Job, error)
}

var _ usecase.CertificationUseCase = (*mockCertification)(nil)

func (m *mockCertification) Certify(ctx context.Context, jobID string, in usecase.CertifyInput) (*model.Job, error) {
	return m.CertifyFunc(ctx, jobID, in)
}

type mockDiagnoses struct {
	AddFunc  func(ctx context.Context, jobID string, p model.NewDiagnosisParams) (*model.Diagnosis, error)
	ListFunc func(ctx context.Context, jobID string) ([]*model.Diagnosis, error)
}

var _ usecase.DiagnosisUseCase = (*mockDiagnoses)(nil)

func (m *mockDiagnoses) Add(ctx context.Context, jobID string, p model.NewDiagnosisParams) (*model.Diagnosis, error) {
	return m.AddFunc(ctx, jobID, p)
}
func (m *mockDiagnoses) List(ctx context.Context, jobID string) ([]*model.Diagnosis, error) {
	return m.ListFunc(ctx, jobID)
}

type mockStats struct {
	GetStatsFunc func(ctx context.Context) (*model.Stats, error)
}

var _ usecase.StatsUseCase = (*mockStats)(nil)

func (m *mockStats) GetStats(ctx context.Context) (*model.Stats, error) {
	return m.GetStatsFunc(ctx)
}
