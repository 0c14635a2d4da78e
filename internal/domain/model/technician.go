package model

import (
	"strings"

	"refurb-workflow/internal/domain"
)

// Technician is a bench technician known to the identity directory.
type Technician struct {
	ID     string
	Name   string
	Active bool
}

func NewTechnician(id, name string) (*Technician, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.InvalidArgument("technician id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = id
	}
	return &Technician{ID: id, Name: name, Active: true}, nil
}

func (t *Technician) IsZero() bool { return t == nil || t.ID == "" }
