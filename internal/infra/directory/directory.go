// Package directory provides the technician identity lookup.
package directory

import (
	"context"
	"fmt"

	"refurb-workflow/internal/config"
	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/domain/ports/adapter"
)

var _ adapter.TechnicianDirectory = (*Static)(nil)

// Static is a directory fixed at startup from configuration.
type Static struct {
	byID map[string]model.Technician
}

func NewStatic(entries []config.TechnicianConfig) (*Static, error) {
	d := &Static{byID: make(map[string]model.Technician, len(entries))}
	for _, e := range entries {
		t, err := model.NewTechnician(e.ID, e.Name)
		if err != nil {
			return nil, err
		}
		if _, dup := d.byID[t.ID]; dup {
			return nil, fmt.Errorf("technician %q listed twice", t.ID)
		}
		d.byID[t.ID] = *t
	}
	return d, nil
}

func (d *Static) Lookup(_ context.Context, id string) (*model.Technician, error) {
	t, ok := d.byID[id]
	if !ok || !t.Active {
		return nil, domain.NotFound("technician", id)
	}
	return &t, nil
}

func (d *Static) Len() int { return len(d.byID) }
