package workflow

import "refurb-workflow/internal/domain/model"

// pipeline is the canonical ordering used for coarse progress.
var pipeline = []model.State{
	model.StateQueued,
	model.StateAssigned,
	model.StateInProgress,
	model.StateSecurityPrepComplete,
	model.StateDiagnosed,
	model.StateRepairInProgress,
	model.StateRepairComplete,
	model.StateFinalTestInProgress,
	model.StateFinalTestPassed,
	model.StateCertified,
	model.StateComplete,
}

// TotalStates is the number of pipeline steps between intake and completion.
var TotalStates = len(pipeline) - 1

var ordinals = func() map[model.State]int {
	m := make(map[model.State]int, len(pipeline))
	for i, s := range pipeline {
		m[s] = i
	}
	return m
}()

// Ordinal returns the position of s in the pipeline. Side states borrow the
// ordinal of the work state they hang off.
func Ordinal(s model.State, heldFrom *model.State) int {
	switch s {
	case model.StateFinalTestFailed:
		return ordinals[model.StateFinalTestInProgress]
	case model.StateFailedDisposition:
		return TotalStates
	case model.StateBlocked, model.StateEscalated:
		if heldFrom != nil && !heldFrom.IsHold() {
			return Ordinal(*heldFrom, nil)
		}
		return 0
	}
	return ordinals[s]
}

// ProgressPercent is statesCompleted / totalStates as an integer percentage.
func ProgressPercent(s model.State, heldFrom *model.State) int {
	return Ordinal(s, heldFrom) * 100 / TotalStates
}
