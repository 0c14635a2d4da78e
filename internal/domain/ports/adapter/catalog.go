package adapter

import (
	"context"

	"refurb-workflow/internal/domain/model"
)

// StepCatalog is the SOP collaborator: it owns which steps exist for a
// product category in a given state. The workflow core treats the list as opaque.
type StepCatalog interface {
	// Steps returns the ordered step list for (category, state). An unknown
	// pair yields an empty list, not an error.
	Steps(ctx context.Context, category string, state model.State) ([]model.StepDescriptor, error)
	// ValidateInputs checks structured step input against the step's schema.
	// Steps without a schema accept any input.
	ValidateInputs(step model.StepDescriptor, inputs map[string]any) error
}
