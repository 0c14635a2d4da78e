// Package workflow holds the static transition table of the refurbishment
// pipeline and the pure functions that read it.
package workflow

import (
	"fmt"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
)

// Edge is one legal (action, target) pair leaving a state. A Resume edge has
// no fixed target: it returns the job to the state it held before a hold.
type Edge struct {
	Action model.Action
	Target model.State
	Resume bool
}

// workStates may be blocked or escalated.
var workStates = []model.State{
	model.StateInProgress,
	model.StateSecurityPrepComplete,
	model.StateDiagnosed,
	model.StateRepairInProgress,
	model.StateRepairComplete,
	model.StateFinalTestInProgress,
	model.StateFinalTestFailed,
}

var table = buildTable()

func buildTable() map[model.State][]Edge {
	t := map[model.State][]Edge{
		model.StateQueued: {
			{Action: model.ActionAssign, Target: model.StateAssigned},
		},
		model.StateAssigned: {
			{Action: model.ActionAdvance, Target: model.StateInProgress},
			{Action: model.ActionBlock, Target: model.StateBlocked},
		},
		model.StateInProgress: {
			{Action: model.ActionAdvance, Target: model.StateSecurityPrepComplete},
		},
		model.StateSecurityPrepComplete: {
			{Action: model.ActionAdvance, Target: model.StateDiagnosed},
		},
		model.StateDiagnosed: {
			{Action: model.ActionAdvance, Target: model.StateRepairInProgress},
			{Action: model.ActionFail, Target: model.StateFailedDisposition},
		},
		model.StateRepairInProgress: {
			{Action: model.ActionAdvance, Target: model.StateRepairComplete},
		},
		model.StateRepairComplete: {
			{Action: model.ActionAdvance, Target: model.StateFinalTestInProgress},
		},
		model.StateFinalTestInProgress: {
			{Action: model.ActionAdvance, Target: model.StateFinalTestPassed},
			{Action: model.ActionFail, Target: model.StateFinalTestFailed},
		},
		model.StateFinalTestPassed: {
			{Action: model.ActionAdvance, Target: model.StateCertified},
		},
		model.StateFinalTestFailed: {
			{Action: model.ActionRetry, Target: model.StateRepairInProgress},
			{Action: model.ActionFail, Target: model.StateFailedDisposition},
		},
		model.StateCertified: {
			{Action: model.ActionAdvance, Target: model.StateComplete},
		},
		model.StateBlocked: {
			{Action: model.ActionResolve, Resume: true},
			{Action: model.ActionEscalate, Target: model.StateEscalated},
			{Action: model.ActionFail, Target: model.StateFailedDisposition},
		},
		model.StateEscalated: {
			{Action: model.ActionResolve, Resume: true},
			{Action: model.ActionFail, Target: model.StateFailedDisposition},
		},
		model.StateComplete:          {},
		model.StateFailedDisposition: {},
	}
	for _, s := range workStates {
		t[s] = append(t[s],
			Edge{Action: model.ActionBlock, Target: model.StateBlocked},
			Edge{Action: model.ActionEscalate, Target: model.StateEscalated},
		)
	}
	return t
}

// Edges returns a copy of the edges leaving s.
func Edges(s model.State) []Edge {
	out := make([]Edge, len(table[s]))
	copy(out, table[s])
	return out
}

// HasEdge reports whether action is legal from s.
func HasEdge(s model.State, action model.Action) bool {
	_, ok := lookup(s, action)
	return ok
}

func lookup(s model.State, action model.Action) (Edge, bool) {
	for _, e := range table[s] {
		if e.Action == action {
			return e, true
		}
	}
	return Edge{}, false
}

// Validate checks that action is legal from current and returns the edge.
func Validate(current model.State, action model.Action) (Edge, error) {
	if !current.IsValid() {
		return Edge{}, &domain.WorkflowError{Kind: domain.ErrInvalidTransition, State: string(current), Action: string(action), Detail: "unknown state"}
	}
	e, ok := lookup(current, action)
	if !ok {
		return Edge{}, &domain.WorkflowError{
			Kind:   domain.ErrInvalidTransition,
			State:  string(current),
			Action: string(action),
			Detail: fmt.Sprintf("allowed actions: %v", allowedActions(current)),
		}
	}
	return e, nil
}

// ResolveTarget returns the concrete state an edge leads to. heldFrom is the
// job's recorded pre-hold state and is only consulted for Resume edges.
func ResolveTarget(current model.State, e Edge, heldFrom *model.State) (model.State, error) {
	if !e.Resume {
		return e.Target, nil
	}
	if heldFrom == nil || !heldFrom.IsValid() || heldFrom.IsHold() || heldFrom.IsTerminal() {
		return "", &domain.WorkflowError{
			Kind:   domain.ErrInvalidTransition,
			State:  string(current),
			Action: string(e.Action),
			Detail: "no state recorded to resume to",
		}
	}
	return *heldFrom, nil
}

// NextHeldFrom computes the held-from marker after moving from -> to.
func NextHeldFrom(from, to model.State, heldFrom *model.State) *model.State {
	switch {
	case !to.IsHold():
		return nil
	case from.IsHold():
		return heldFrom
	default:
		s := from
		return &s
	}
}

func allowedActions(s model.State) []model.Action {
	out := make([]model.Action, 0, len(table[s]))
	for _, e := range table[s] {
		out = append(out, e.Action)
	}
	return out
}
