package model

import (
	"strings"
	"time"

	"refurb-workflow/internal/domain"

	"github.com/google/uuid"
)

type State string

const (
	StateQueued               State = "QUEUED"
	StateAssigned             State = "ASSIGNED"
	StateInProgress           State = "IN_PROGRESS"
	StateSecurityPrepComplete State = "SECURITY_PREP_COMPLETE"
	StateDiagnosed            State = "DIAGNOSED"
	StateRepairInProgress     State = "REPAIR_IN_PROGRESS"
	StateRepairComplete       State = "REPAIR_COMPLETE"
	StateFinalTestInProgress  State = "FINAL_TEST_IN_PROGRESS"
	StateFinalTestPassed      State = "FINAL_TEST_PASSED"
	StateFinalTestFailed      State = "FINAL_TEST_FAILED"
	StateCertified            State = "CERTIFIED"
	StateComplete             State = "COMPLETE"
	StateBlocked              State = "BLOCKED"
	StateEscalated            State = "ESCALATED"
	StateFailedDisposition    State = "FAILED_DISPOSITION"
)

// AllStates lists every state in pipeline order followed by the side states.
var AllStates = []State{
	StateQueued,
	StateAssigned,
	StateInProgress,
	StateSecurityPrepComplete,
	StateDiagnosed,
	StateRepairInProgress,
	StateRepairComplete,
	StateFinalTestInProgress,
	StateFinalTestPassed,
	StateCertified,
	StateComplete,
	StateFinalTestFailed,
	StateBlocked,
	StateEscalated,
	StateFailedDisposition,
}

var stateDisplayNames = map[State]string{
	StateQueued:               "Queued",
	StateAssigned:             "Assigned",
	StateInProgress:           "Security Prep",
	StateSecurityPrepComplete: "Security Prep Complete",
	StateDiagnosed:            "Diagnosed",
	StateRepairInProgress:     "Repair In Progress",
	StateRepairComplete:       "Repair Complete",
	StateFinalTestInProgress:  "Final Test In Progress",
	StateFinalTestPassed:      "Final Test Passed",
	StateFinalTestFailed:      "Final Test Failed",
	StateCertified:            "Certified",
	StateComplete:             "Complete",
	StateBlocked:              "Blocked",
	StateEscalated:            "Escalated",
	StateFailedDisposition:    "Failed Disposition",
}

func (s State) IsValid() bool {
	_, ok := stateDisplayNames[s]
	return ok
}

// IsTerminal reports whether no further transitions can leave s.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailedDisposition
}

// IsHold reports whether s is a human intervention state.
func (s State) IsHold() bool {
	return s == StateBlocked || s == StateEscalated
}

func (s State) DisplayName() string {
	if n, ok := stateDisplayNames[s]; ok {
		return n
	}
	return string(s)
}

func ParseState(v string) (State, error) {
	s := State(strings.ToUpper(strings.TrimSpace(v)))
	if !s.IsValid() {
		return "", domain.InvalidArgument("unknown state %q", v)
	}
	return s, nil
}

type Action string

const (
	ActionAssign   Action = "ASSIGN"
	ActionAdvance  Action = "ADVANCE"
	ActionBlock    Action = "BLOCK"
	ActionEscalate Action = "ESCALATE"
	ActionResolve  Action = "RESOLVE"
	ActionRetry    Action = "RETRY"
	ActionFail     Action = "FAIL"
)

var AllActions = []Action{
	ActionAssign, ActionAdvance, ActionBlock, ActionEscalate, ActionResolve, ActionRetry, ActionFail,
}

func (a Action) IsValid() bool {
	for _, v := range AllActions {
		if v == a {
			return true
		}
	}
	return false
}

func ParseAction(v string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(v)))
	if !a.IsValid() {
		return "", domain.InvalidArgument("unknown action %q", v)
	}
	return a, nil
}

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// Rank orders work queues: urgent first. Unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

func ParsePriority(v string) (Priority, error) {
	if strings.TrimSpace(v) == "" {
		return PriorityNormal, nil
	}
	p := Priority(strings.ToLower(strings.TrimSpace(v)))
	if !p.IsValid() {
		return "", domain.InvalidArgument("unknown priority %q", v)
	}
	return p, nil
}

const DefaultMaxAttempts = 2

// Job is one device's run through the refurbishment pipeline.
type Job struct {
	ID           string
	UnitID       string // QLID printed on the unit
	PalletID     string
	Category     string
	Manufacturer string
	Model        string

	State            State
	HeldFromState    *State // work state held before entering BLOCKED/ESCALATED
	CurrentStepIndex int
	TechnicianID     *string
	TechnicianName   *string
	AttemptCount     int
	MaxAttempts      int
	Priority         Priority

	FinalGrade        *string
	WarrantyEligible  *bool
	DispositionReason *string

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// NewJobParams are the intake fields used to create a job.
type NewJobParams struct {
	UnitID       string
	PalletID     string
	Category     string
	Manufacturer string
	Model        string
	Priority     Priority
	MaxAttempts  int
}

// NewJob builds a job in the initial queued state.
func NewJob(p NewJobParams) (*Job, error) {
	unitID := strings.TrimSpace(p.UnitID)
	if unitID == "" {
		return nil, domain.InvalidArgument("unit id is required")
	}
	if strings.TrimSpace(p.PalletID) == "" {
		return nil, domain.InvalidArgument("pallet id is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		return nil, domain.InvalidArgument("category is required")
	}
	prio := p.Priority
	if prio == "" {
		prio = PriorityNormal
	}
	if !prio.IsValid() {
		return nil, domain.InvalidArgument("unknown priority %q", p.Priority)
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if maxAttempts < 1 {
		return nil, domain.InvalidArgument("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	now := time.Now().UTC()
	return &Job{
		ID:           uuid.NewString(),
		UnitID:       unitID,
		PalletID:     strings.TrimSpace(p.PalletID),
		Category:     strings.TrimSpace(p.Category),
		Manufacturer: strings.TrimSpace(p.Manufacturer),
		Model:        strings.TrimSpace(p.Model),
		State:        StateQueued,
		MaxAttempts:  maxAttempts,
		Priority:     prio,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// AttemptsRemaining is the number of RETRY actions still permitted.
func (j *Job) AttemptsRemaining() int {
	if n := j.MaxAttempts - j.AttemptCount; n > 0 {
		return n
	}
	return 0
}

// Clone returns a deep copy so callers can mutate freely.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.HeldFromState = clonePtr(j.HeldFromState)
	cp.TechnicianID = clonePtr(j.TechnicianID)
	cp.TechnicianName = clonePtr(j.TechnicianName)
	cp.FinalGrade = clonePtr(j.FinalGrade)
	cp.WarrantyEligible = clonePtr(j.WarrantyEligible)
	cp.DispositionReason = clonePtr(j.DispositionReason)
	cp.StartedAt = clonePtr(j.StartedAt)
	cp.CompletedAt = clonePtr(j.CompletedAt)
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// JobFilter narrows ListJobs. Zero values mean "any". Results are ordered
// by priority rank, then creation time.
type JobFilter struct {
	State        State
	TechnicianID string
	Category     string
	Priority     Priority
	Limit        int
	Offset       int
}
