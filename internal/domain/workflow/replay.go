package workflow

import (
	"fmt"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
)

// Replay walks an ordered transition log against the table and returns the
// state it ends in. The first entry must be the creation entry.
func Replay(entries []*model.TransitionLogEntry) (model.State, error) {
	if len(entries) == 0 {
		return "", domain.InvalidArgument("empty transition log")
	}
	first := entries[0]
	if first.FromState != nil || first.ToState != model.StateQueued {
		return "", domain.InvalidArgument("log does not start with job creation")
	}

	state := first.ToState
	var heldFrom *model.State
	for i, e := range entries[1:] {
		if e.FromState == nil || *e.FromState != state {
			return "", domain.InvalidArgument("entry %d: from state does not match replayed state %s", i+1, state)
		}
		edge, err := Validate(state, e.Action)
		if err != nil {
			return "", fmt.Errorf("entry %d: %w", i+1, err)
		}
		to, err := ResolveTarget(state, edge, heldFrom)
		if err != nil {
			return "", fmt.Errorf("entry %d: %w", i+1, err)
		}
		if to != e.ToState {
			return "", domain.InvalidArgument("entry %d: table leads to %s but log records %s", i+1, to, e.ToState)
		}
		heldFrom = NextHeldFrom(state, to, heldFrom)
		state = to
	}
	return state, nil
}
