package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// TransitionLogEntry is an immutable audit record of one state change.
// FromState is nil only for the entry written when the job is created.
type TransitionLogEntry struct {
	ID           string
	JobID        string
	FromState    *State
	ToState      State
	Action       Action
	TechnicianID *string
	Notes        *string
	CreatedAt    time.Time
}

// ActionCreate marks the log entry written at intake. It is not a table action.
const ActionCreate Action = "CREATE"

func NewTransitionLogEntry(jobID string, from *State, to State, action Action, technicianID, notes *string, at time.Time) *TransitionLogEntry {
	return &TransitionLogEntry{
		ID:           NewRecordID(at),
		JobID:        jobID,
		FromState:    clonePtr(from),
		ToState:      to,
		Action:       action,
		TechnicianID: clonePtr(technicianID),
		Notes:        clonePtr(notes),
		CreatedAt:    at,
	}
}

// NewRecordID returns a time-ordered identifier for append-only records.
func NewRecordID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

// TransitionPayload carries optional outcome fields merged into the job.
type TransitionPayload struct {
	FinalGrade        *string
	WarrantyEligible  *bool
	DispositionReason *string
	Notes             *string
}
