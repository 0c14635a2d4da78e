//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/domain/ports/adapter"
	"refurb-workflow/internal/domain/ports/repository"
	"refurb-workflow/internal/usecase"
)

// =============================
// Repositories
// =============================

// ---- In-memory JobRepository ----

type MockJobRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.Job
	byUnit map[string]string

	UpdateFunc func(ctx context.Context, tx repository.Tx, job *model.Job) error
	Updates    int
}

var _ repository.JobRepository = (*MockJobRepo)(nil)

func NewMockJobRepo() *MockJobRepo {
	return &MockJobRepo{byID: map[string]*model.Job{}, byUnit: map[string]string{}}
}

func (r *MockJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUnit[job.UnitID]; ok {
		return domain.ErrDuplicateIdentity
	}
	r.byID[job.ID] = job.Clone()
	r.byUnit[job.UnitID] = job.ID
	return nil
}

func (r *MockJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.byID[id]; ok {
		return j.Clone(), nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockJobRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	return r.FindByID(ctx, tx, id)
}

func (r *MockJobRepo) FindByUnitID(ctx context.Context, tx repository.Tx, unitID string) (*model.Job, error) {
	r.mu.Lock()
	id, ok := r.byUnit[unitID]
	r.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.FindByID(ctx, tx, id)
}

func (r *MockJobRepo) List(ctx context.Context, tx repository.Tx, f model.JobFilter) ([]*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Job, 0, len(r.byID))
	for _, j := range r.byID {
		if f.State != "" && j.State != f.State {
			continue
		}
		if f.Category != "" && j.Category != f.Category {
			continue
		}
		if f.Priority != "" && j.Priority != f.Priority {
			continue
		}
		if f.TechnicianID != "" && (j.TechnicianID == nil || *j.TechnicianID != f.TechnicianID) {
			continue
		}
		out = append(out, j.Clone())
	}
	sort.Slice(out, func(a, b int) bool {
		if ra, rb := out[a].Priority.Rank(), out[b].Priority.Rank(); ra != rb {
			return ra < rb
		}
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*model.Job{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MockJobRepo) Update(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if r.UpdateFunc != nil {
		return r.UpdateFunc(ctx, tx, job)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[job.ID]; !ok {
		return domain.ErrNotFound
	}
	r.byID[job.ID] = job.Clone()
	r.Updates++
	return nil
}

func (r *MockJobRepo) UpdateStepIndex(ctx context.Context, tx repository.Tx, id string, index int, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.CurrentStepIndex = index
	j.UpdatedAt = updatedAt
	return nil
}

func (r *MockJobRepo) CountAll(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

func (r *MockJobRepo) CountByState(ctx context.Context, tx repository.Tx) (map[model.State]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.State]int{}
	for _, j := range r.byID {
		out[j.State]++
	}
	return out, nil
}

func (r *MockJobRepo) CountByCategory(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int{}
	for _, j := range r.byID {
		out[j.Category]++
	}
	return out, nil
}

func (r *MockJobRepo) CountByPriority(ctx context.Context, tx repository.Tx) (map[model.Priority]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.Priority]int{}
	for _, j := range r.byID {
		out[j.Priority]++
	}
	return out, nil
}

func (r *MockJobRepo) CountCompletedBetween(ctx context.Context, tx repository.Tx, from, to time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, j := range r.byID {
		if j.State != model.StateComplete || j.CompletedAt == nil {
			continue
		}
		if !j.CompletedAt.Before(from) && j.CompletedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (r *MockJobRepo) AverageCycleTime(ctx context.Context, tx repository.Tx) (time.Duration, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum time.Duration
	n := 0
	for _, j := range r.byID {
		if j.State != model.StateComplete || j.StartedAt == nil || j.CompletedAt == nil {
			continue
		}
		sum += j.CompletedAt.Sub(*j.StartedAt)
		n++
	}
	if n == 0 {
		return 0, 0, nil
	}
	return sum / time.Duration(n), n, nil
}

// put stores a job directly, bypassing the use cases.
func (r *MockJobRepo) put(j *model.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[j.ID] = j.Clone()
	r.byUnit[j.UnitID] = j.ID
}

// ---- In-memory TransitionLogRepository ----

type MockTransitionLogRepo struct {
	mu      sync.Mutex
	entries []*model.TransitionLogEntry

	AppendFunc func(ctx context.Context, tx repository.Tx, e *model.TransitionLogEntry) error
}

var _ repository.TransitionLogRepository = (*MockTransitionLogRepo)(nil)

func NewMockTransitionLogRepo() *MockTransitionLogRepo { return &MockTransitionLogRepo{} }

func (r *MockTransitionLogRepo) Append(ctx context.Context, tx repository.Tx, e *model.TransitionLogEntry) error {
	if r.AppendFunc != nil {
		return r.AppendFunc(ctx, tx, e)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *MockTransitionLogRepo) ListByJob(ctx context.Context, tx repository.Tx, jobID string) ([]*model.TransitionLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.TransitionLogEntry
	for _, e := range r.entries {
		if e.JobID == jobID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockTransitionLogRepo) count(jobID string) int {
	es, _ := r.ListByJob(context.Background(), repository.NoTX, jobID)
	return len(es)
}

// ---- In-memory StepCompletionRepository ----

type MockStepCompletionRepo struct {
	mu   sync.Mutex
	rows map[string]*model.StepCompletion // key: job|state|step
}

var _ repository.StepCompletionRepository = (*MockStepCompletionRepo)(nil)

func NewMockStepCompletionRepo() *MockStepCompletionRepo {
	return &MockStepCompletionRepo{rows: map[string]*model.StepCompletion{}}
}

func stepKey(jobID string, state model.State, step string) string {
	return fmt.Sprintf("%s|%s|%s", jobID, state, step)
}

func (r *MockStepCompletionRepo) Upsert(ctx context.Context, tx repository.Tx, sc *model.StepCompletion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sc
	r.rows[stepKey(sc.JobID, sc.StateCode, sc.StepCode)] = &cp
	return nil
}

func (r *MockStepCompletionRepo) ListByJobState(ctx context.Context, tx repository.Tx, jobID string, state model.State, minAttempt int) ([]*model.StepCompletion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.StepCompletion
	for _, sc := range r.rows {
		if sc.JobID == jobID && sc.StateCode == state && sc.Attempt >= minAttempt {
			cp := *sc
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CompletedAt.Before(out[b].CompletedAt) })
	return out, nil
}

func (r *MockStepCompletionRepo) CountDistinct(ctx context.Context, tx repository.Tx, jobID string, state model.State, minAttempt int) (int, error) {
	rows, err := r.ListByJobState(ctx, tx, jobID, state, minAttempt)
	return len(rows), err
}

func (r *MockStepCompletionRepo) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// ---- In-memory DiagnosisRepository ----

type MockDiagnosisRepo struct {
	mu   sync.Mutex
	rows []*model.Diagnosis
}

var _ repository.DiagnosisRepository = (*MockDiagnosisRepo)(nil)

func NewMockDiagnosisRepo() *MockDiagnosisRepo { return &MockDiagnosisRepo{} }

func (r *MockDiagnosisRepo) Save(ctx context.Context, tx repository.Tx, d *model.Diagnosis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *MockDiagnosisRepo) ListByJob(ctx context.Context, tx repository.Tx, jobID string) ([]*model.Diagnosis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Diagnosis
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].JobID == jobID {
			cp := *r.rows[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Transaction manager ----

// MockTxManager serializes callbacks, standing in for the per-job row lock.
type MockTxManager struct {
	mu         sync.Mutex
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, repository.NoTX)
}

// =============================
// Adapters
// =============================

// ---- Static StepCatalog ----

type MockCatalog struct {
	byKey        map[string][]model.StepDescriptor // key: category|state
	ValidateFunc func(step model.StepDescriptor, inputs map[string]any) error
}

var _ adapter.StepCatalog = (*MockCatalog)(nil)

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{byKey: map[string][]model.StepDescriptor{}}
}

func (c *MockCatalog) set(category string, state model.State, steps ...model.StepDescriptor) {
	c.byKey[category+"|"+string(state)] = steps
}

func (c *MockCatalog) Steps(ctx context.Context, category string, state model.State) ([]model.StepDescriptor, error) {
	return c.byKey[category+"|"+string(state)], nil
}

func (c *MockCatalog) ValidateInputs(step model.StepDescriptor, inputs map[string]any) error {
	if c.ValidateFunc != nil {
		return c.ValidateFunc(step, inputs)
	}
	if len(step.InputSchema) == 0 {
		return nil
	}
	var required struct {
		Required []string `json:"required"`
	}
	_ = json.Unmarshal(step.InputSchema, &required)
	for _, k := range required.Required {
		if _, ok := inputs[k]; !ok {
			return fmt.Errorf("%s is required", k)
		}
	}
	return nil
}

// ---- Static TechnicianDirectory ----

type MockDirectory struct {
	techs map[string]*model.Technician
}

var _ adapter.TechnicianDirectory = (*MockDirectory)(nil)

func NewMockDirectory(techs ...*model.Technician) *MockDirectory {
	d := &MockDirectory{techs: map[string]*model.Technician{}}
	for _, t := range techs {
		d.techs[t.ID] = t
	}
	return d
}

func (d *MockDirectory) Lookup(ctx context.Context, id string) (*model.Technician, error) {
	if t, ok := d.techs[id]; ok && t.Active {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// =============================
// Helpers
// =============================

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func ptr[T any](v T) *T { return &v }

// fixture wires every use case over one set of in-memory repositories.
type fixture struct {
	jobs      *MockJobRepo
	logs      *MockTransitionLogRepo
	steps     *MockStepCompletionRepo
	diagnoses *MockDiagnosisRepo
	catalog   *MockCatalog
	techs     *MockDirectory
	tm        *MockTxManager

	jobUC         usecase.JobUseCase
	transitionUC  usecase.TransitionUseCase
	stepUC        usecase.StepUseCase
	promptUC      usecase.PromptUseCase
	certifyUC     usecase.CertificationUseCase
	diagnosisUC   usecase.DiagnosisUseCase
	statsUC       usecase.StatsUseCase
	defaultTechID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := newTestLogger()
	ana, _ := model.NewTechnician("tech-1", "Ana")
	ben, _ := model.NewTechnician("tech-2", "Ben")
	gone := &model.Technician{ID: "tech-9", Name: "Former", Active: false}

	f := &fixture{
		jobs:          NewMockJobRepo(),
		logs:          NewMockTransitionLogRepo(),
		steps:         NewMockStepCompletionRepo(),
		diagnoses:     NewMockDiagnosisRepo(),
		catalog:       NewMockCatalog(),
		techs:         NewMockDirectory(ana, ben, gone),
		tm:            NewMockTxManager(),
		defaultTechID: "tech-1",
	}
	transitions := usecase.NewTransitionUseCase(f.jobs, f.logs, f.steps, f.techs, f.tm, logger)
	f.transitionUC = transitions
	f.jobUC = usecase.NewJobUseCase(f.jobs, f.logs, f.steps, f.techs, f.tm, model.DefaultMaxAttempts, logger)
	f.stepUC = usecase.NewStepUseCase(f.jobs, f.logs, f.steps, f.catalog, f.techs, f.tm, logger)
	f.promptUC = usecase.NewPromptUseCase(f.jobs, f.steps, f.catalog, logger)
	f.certifyUC = usecase.NewCertificationUseCase(transitions, logger)
	f.diagnosisUC = usecase.NewDiagnosisUseCase(f.jobs, f.diagnoses, f.techs, logger)
	f.statsUC = usecase.NewStatsUseCase(f.jobs, time.UTC, logger)
	return f
}

func (f *fixture) createJob(t *testing.T, unitID string) *model.Job {
	t.Helper()
	job, err := f.jobUC.Create(context.Background(), model.NewJobParams{UnitID: unitID, PalletID: "PAL-1", Category: "laptop"})
	if err != nil {
		t.Fatalf("create job %s: %v", unitID, err)
	}
	return job
}

// drive applies actions in order and fails the test on the first error.
func (f *fixture) drive(t *testing.T, jobID string, actions ...model.Action) *model.Job {
	t.Helper()
	var job *model.Job
	var err error
	for _, a := range actions {
		job, err = f.transitionUC.Execute(context.Background(), usecase.TransitionRequest{
			JobID:        jobID,
			Action:       a,
			TechnicianID: ptr(f.defaultTechID),
		})
		if err != nil {
			t.Fatalf("action %s: %v", a, err)
		}
	}
	return job
}

// seed stores a job directly in state s.
func (f *fixture) seed(t *testing.T, unitID string, s model.State) *model.Job {
	t.Helper()
	job, err := model.NewJob(model.NewJobParams{UnitID: unitID, PalletID: "PAL-1", Category: "laptop"})
	if err != nil {
		t.Fatal(err)
	}
	job.State = s
	if s.IsHold() {
		held := model.StateRepairInProgress
		job.HeldFromState = &held
	}
	f.jobs.put(job)
	return job
}

var toFinalTest = []model.Action{
	model.ActionAdvance, // IN_PROGRESS
	model.ActionAdvance, // SECURITY_PREP_COMPLETE
	model.ActionAdvance, // DIAGNOSED
	model.ActionAdvance, // REPAIR_IN_PROGRESS
	model.ActionAdvance, // REPAIR_COMPLETE
	model.ActionAdvance, // FINAL_TEST_IN_PROGRESS
}
