package model

import (
	"encoding/json"
	"strings"
	"time"

	"refurb-workflow/internal/domain"
)

// PhotoRef points at a photo captured while performing a step.
type PhotoRef struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// StepData is what a technician submits for one step.
type StepData struct {
	Checklist    map[string]bool    `json:"checklist,omitempty"`
	Inputs       map[string]any     `json:"inputs,omitempty"`
	Measurements map[string]float64 `json:"measurements,omitempty"`
	Notes        *string            `json:"notes,omitempty"`
	Photos       []PhotoRef         `json:"photos,omitempty"`
}

// StepCompletion is the recorded outcome of one step within one state visit.
// Unique per (JobID, StateCode, StepCode).
type StepCompletion struct {
	ID             string
	JobID          string
	StateCode      State
	StepCode       string
	Attempt        int // job attempt count when recorded
	Data           StepData
	TechnicianID   string
	TechnicianName string
	CompletedAt    time.Time
}

func NewStepCompletion(job *Job, stepCode, technicianID, technicianName string, data StepData, at time.Time) (*StepCompletion, error) {
	code := strings.TrimSpace(stepCode)
	if code == "" {
		return nil, domain.InvalidArgument("step code is required")
	}
	if strings.TrimSpace(technicianID) == "" {
		return nil, domain.InvalidArgument("technician id is required")
	}
	for i, p := range data.Photos {
		if strings.TrimSpace(p.URL) == "" {
			return nil, domain.InvalidArgument("photo %d has no url", i)
		}
	}
	return &StepCompletion{
		ID:             NewRecordID(at),
		JobID:          job.ID,
		StateCode:      job.State,
		StepCode:       code,
		Attempt:        job.AttemptCount,
		Data:           data,
		TechnicianID:   technicianID,
		TechnicianName: technicianName,
		CompletedAt:    at,
	}, nil
}

// IsCurrent reports whether sc belongs to the job's active state visit.
// Completions from an earlier attempt are kept but no longer count.
func (sc *StepCompletion) IsCurrent(job *Job) bool {
	return sc.JobID == job.ID && sc.StateCode == job.State && sc.Attempt >= job.AttemptCount
}

// StepDescriptor is one entry of the SOP catalog for a (category, state).
type StepDescriptor struct {
	Code        string          `json:"code" yaml:"code"`
	Title       string          `json:"title" yaml:"title"`
	Required    bool            `json:"required" yaml:"required"`
	InputSchema json.RawMessage `json:"input_schema,omitempty" yaml:"-"`
}
