package adapter

import (
	"context"

	"refurb-workflow/internal/domain/model"
)

// TechnicianDirectory is the identity collaborator used to validate technicians.
type TechnicianDirectory interface {
	// Lookup returns domain.ErrNotFound for unknown or inactive technicians.
	Lookup(ctx context.Context, id string) (*model.Technician, error)
}
