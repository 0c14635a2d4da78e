package apiv1

import (
	"time"

	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/domain/workflow"
	"refurb-workflow/internal/usecase"
)

// ---- requests ----

type CreateJobRequest struct {
	UnitID       string `json:"unit_id" validate:"required,max=64"`
	PalletID     string `json:"pallet_id" validate:"required,max=64"`
	Category     string `json:"category" validate:"required,max=64"`
	Manufacturer string `json:"manufacturer,omitempty" validate:"max=128"`
	Model        string `json:"model,omitempty" validate:"max=128"`
	Priority     string `json:"priority,omitempty"`
	MaxAttempts  int    `json:"max_attempts,omitempty" validate:"omitempty,min=1,max=10"`
}

type AssignRequest struct {
	TechnicianID   string `json:"technician_id,omitempty"`
	TechnicianName string `json:"technician_name,omitempty"`
}

type TransitionRequest struct {
	Action            string  `json:"action" validate:"required"`
	TechnicianID      *string `json:"technician_id,omitempty"`
	Notes             *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
	FinalGrade        *string `json:"final_grade,omitempty"`
	WarrantyEligible  *bool   `json:"warranty_eligible,omitempty"`
	DispositionReason *string `json:"disposition_reason,omitempty"`
}

type Photo struct {
	URL  string `json:"url" validate:"required,url"`
	Type string `json:"type,omitempty"`
}

type CompleteStepRequest struct {
	StepCode       string             `json:"step_code" validate:"required,max=64"`
	TechnicianID   string             `json:"technician_id,omitempty"`
	TechnicianName string             `json:"technician_name,omitempty"`
	Checklist      map[string]bool    `json:"checklist,omitempty"`
	Inputs         map[string]any     `json:"inputs,omitempty"`
	Measurements   map[string]float64 `json:"measurements,omitempty"`
	Notes          *string            `json:"notes,omitempty"`
	Photos         []Photo            `json:"photos,omitempty" validate:"dive"`
}

type PromptRequest struct {
	Steps []Step `json:"steps" validate:"dive"`
}

type CertifyRequest struct {
	TechnicianID     string  `json:"technician_id,omitempty"`
	FinalGrade       string  `json:"final_grade" validate:"required,max=16"`
	WarrantyEligible bool    `json:"warranty_eligible"`
	Notes            *string `json:"notes,omitempty"`
}

type Part struct {
	SKU      string `json:"sku" validate:"required"`
	Name     string `json:"name,omitempty"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

type DiagnosisRequest struct {
	DefectCode    string             `json:"defect_code" validate:"required,max=64"`
	Severity      string             `json:"severity" validate:"required,oneof=critical major minor cosmetic"`
	Measurements  map[string]float64 `json:"measurements,omitempty"`
	RepairAction  *string            `json:"repair_action,omitempty"`
	RequiredParts []Part             `json:"required_parts,omitempty" validate:"dive"`
	RepairStatus  string             `json:"repair_status,omitempty" validate:"omitempty,oneof=pending in_progress repaired deferred"`
	TechnicianID  string             `json:"technician_id,omitempty"`
}

// ---- responses ----

type Job struct {
	ID                string     `json:"id"`
	UnitID            string     `json:"unit_id"`
	PalletID          string     `json:"pallet_id"`
	Category          string     `json:"category"`
	Manufacturer      string     `json:"manufacturer,omitempty"`
	Model             string     `json:"model,omitempty"`
	State             string     `json:"state"`
	StateDisplayName  string     `json:"state_display_name"`
	HeldFromState     *string    `json:"held_from_state,omitempty"`
	CurrentStepIndex  int        `json:"current_step_index"`
	ProgressPercent   int        `json:"progress_percent"`
	TechnicianID      *string    `json:"technician_id,omitempty"`
	TechnicianName    *string    `json:"technician_name,omitempty"`
	AttemptCount      int        `json:"attempt_count"`
	MaxAttempts       int        `json:"max_attempts"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	Priority          string     `json:"priority"`
	FinalGrade        *string    `json:"final_grade,omitempty"`
	WarrantyEligible  *bool      `json:"warranty_eligible,omitempty"`
	DispositionReason *string    `json:"disposition_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type Transition struct {
	ID           string    `json:"id"`
	FromState    *string   `json:"from_state"`
	ToState      string    `json:"to_state"`
	Action       string    `json:"action"`
	TechnicianID *string   `json:"technician_id,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type HistoryCheck struct {
	JobID       string `json:"job_id"`
	Stored      string `json:"stored_state"`
	Replayed    string `json:"replayed_state,omitempty"`
	Entries     int    `json:"entries"`
	Consistent  bool   `json:"consistent"`
	ReplayError string `json:"replay_error,omitempty"`
}

type StepCompletion struct {
	ID             string         `json:"id"`
	StateCode      string         `json:"state_code"`
	StepCode       string         `json:"step_code"`
	Attempt        int            `json:"attempt"`
	Data           model.StepData `json:"data"`
	TechnicianID   string         `json:"technician_id"`
	TechnicianName string         `json:"technician_name,omitempty"`
	CompletedAt    time.Time      `json:"completed_at"`
}

type Step struct {
	Code     string `json:"code" validate:"required"`
	Title    string `json:"title"`
	Required bool   `json:"required"`
}

type Prompt struct {
	JobID             string           `json:"job_id"`
	State             string           `json:"state"`
	StateDisplayName  string           `json:"state_display_name"`
	Steps             []Step           `json:"steps"`
	CompletedSteps    []StepCompletion `json:"completed_steps"`
	CurrentStepIndex  int              `json:"current_step_index"`
	CurrentStep       *Step            `json:"current_step"`
	CanAdvance        bool             `json:"can_advance"`
	CanBlock          bool             `json:"can_block"`
	CanEscalate       bool             `json:"can_escalate"`
	CanRetry          bool             `json:"can_retry"`
	CanResolve        bool             `json:"can_resolve"`
	CanFail           bool             `json:"can_fail"`
	AttemptCount      int              `json:"attempt_count"`
	MaxAttempts       int              `json:"max_attempts"`
	AttemptsRemaining int              `json:"attempts_remaining"`
	ProgressPercent   int              `json:"progress_percent"`
}

type Diagnosis struct {
	ID            string               `json:"id"`
	DefectCode    string               `json:"defect_code"`
	Severity      string               `json:"severity"`
	Measurements  map[string]float64   `json:"measurements,omitempty"`
	RepairAction  *string              `json:"repair_action,omitempty"`
	RequiredParts []model.RequiredPart `json:"required_parts,omitempty"`
	RepairStatus  string               `json:"repair_status"`
	TechnicianID  string               `json:"technician_id,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

type Stats struct {
	Total                   int            `json:"total"`
	ByState                 map[string]int `json:"by_state"`
	ByCategory              map[string]int `json:"by_category"`
	ByPriority              map[string]int `json:"by_priority"`
	CompletedToday          int            `json:"completed_today"`
	AverageCycleTimeSeconds float64        `json:"average_cycle_time_seconds"`
	CycleTimeSamples        int            `json:"cycle_time_samples"`
}

// ---- converters ----

func toJob(j *model.Job) Job {
	out := Job{
		ID:                j.ID,
		UnitID:            j.UnitID,
		PalletID:          j.PalletID,
		Category:          j.Category,
		Manufacturer:      j.Manufacturer,
		Model:             j.Model,
		State:             string(j.State),
		StateDisplayName:  j.State.DisplayName(),
		CurrentStepIndex:  j.CurrentStepIndex,
		ProgressPercent:   workflow.ProgressPercent(j.State, j.HeldFromState),
		TechnicianID:      j.TechnicianID,
		TechnicianName:    j.TechnicianName,
		AttemptCount:      j.AttemptCount,
		MaxAttempts:       j.MaxAttempts,
		AttemptsRemaining: j.AttemptsRemaining(),
		Priority:          string(j.Priority),
		FinalGrade:        j.FinalGrade,
		WarrantyEligible:  j.WarrantyEligible,
		DispositionReason: j.DispositionReason,
		CreatedAt:         j.CreatedAt,
		StartedAt:         j.StartedAt,
		CompletedAt:       j.CompletedAt,
		UpdatedAt:         j.UpdatedAt,
	}
	if j.HeldFromState != nil {
		s := string(*j.HeldFromState)
		out.HeldFromState = &s
	}
	return out
}

func toTransition(e *model.TransitionLogEntry) Transition {
	out := Transition{
		ID:           e.ID,
		ToState:      string(e.ToState),
		Action:       string(e.Action),
		TechnicianID: e.TechnicianID,
		Notes:        e.Notes,
		CreatedAt:    e.CreatedAt,
	}
	if e.FromState != nil {
		s := string(*e.FromState)
		out.FromState = &s
	}
	return out
}

func toHistoryCheck(h *usecase.HistoryCheck) HistoryCheck {
	return HistoryCheck{
		JobID:       h.JobID,
		Stored:      string(h.Stored),
		Replayed:    string(h.Replayed),
		Entries:     h.Entries,
		Consistent:  h.Consistent,
		ReplayError: h.ReplayError,
	}
}

func toStepCompletion(sc *model.StepCompletion) StepCompletion {
	return StepCompletion{
		ID:             sc.ID,
		StateCode:      string(sc.StateCode),
		StepCode:       sc.StepCode,
		Attempt:        sc.Attempt,
		Data:           sc.Data,
		TechnicianID:   sc.TechnicianID,
		TechnicianName: sc.TechnicianName,
		CompletedAt:    sc.CompletedAt,
	}
}

func toStep(d model.StepDescriptor) Step {
	return Step{Code: d.Code, Title: d.Title, Required: d.Required}
}

func toPrompt(p *model.Prompt) Prompt {
	out := Prompt{
		JobID:             p.JobID,
		State:             string(p.State),
		StateDisplayName:  p.StateDisplayName,
		Steps:             make([]Step, 0, len(p.Steps)),
		CompletedSteps:    make([]StepCompletion, 0, len(p.CompletedSteps)),
		CurrentStepIndex:  p.CurrentStepIndex,
		CanAdvance:        p.CanAdvance,
		CanBlock:          p.CanBlock,
		CanEscalate:       p.CanEscalate,
		CanRetry:          p.CanRetry,
		CanResolve:        p.CanResolve,
		CanFail:           p.CanFail,
		AttemptCount:      p.AttemptCount,
		MaxAttempts:       p.MaxAttempts,
		AttemptsRemaining: p.AttemptsRemaining,
		ProgressPercent:   p.ProgressPercent,
	}
	for _, s := range p.Steps {
		out.Steps = append(out.Steps, toStep(s))
	}
	for _, sc := range p.CompletedSteps {
		out.CompletedSteps = append(out.CompletedSteps, toStepCompletion(sc))
	}
	if p.CurrentStep != nil {
		s := toStep(*p.CurrentStep)
		out.CurrentStep = &s
	}
	return out
}

func toDiagnosis(d *model.Diagnosis) Diagnosis {
	return Diagnosis{
		ID:            d.ID,
		DefectCode:    d.DefectCode,
		Severity:      string(d.Severity),
		Measurements:  d.Measurements,
		RepairAction:  d.RepairAction,
		RequiredParts: d.RequiredParts,
		RepairStatus:  string(d.RepairStatus),
		TechnicianID:  d.TechnicianID,
		CreatedAt:     d.CreatedAt,
	}
}

func toStats(st *model.Stats) Stats {
	out := Stats{
		Total:                   st.Total,
		ByState:                 make(map[string]int, len(st.ByState)),
		ByCategory:              st.ByCategory,
		ByPriority:              make(map[string]int, len(st.ByPriority)),
		CompletedToday:          st.CompletedToday,
		AverageCycleTimeSeconds: st.AverageCycleTime.Seconds(),
		CycleTimeSamples:        st.CycleTimeSampleCnt,
	}
	for k, v := range st.ByState {
		out.ByState[string(k)] = v
	}
	for k, v := range st.ByPriority {
		out.ByPriority[string(k)] = v
	}
	if out.ByCategory == nil {
		out.ByCategory = map[string]int{}
	}
	return out
}
