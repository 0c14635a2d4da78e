package model

import (
	"strings"
	"time"

	"refurb-workflow/internal/domain"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityCosmetic Severity = "cosmetic"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityMajor, SeverityMinor, SeverityCosmetic:
		return true
	}
	return false
}

type RepairStatus string

const (
	RepairStatusPending    RepairStatus = "pending"
	RepairStatusInProgress RepairStatus = "in_progress"
	RepairStatusRepaired   RepairStatus = "repaired"
	RepairStatusDeferred   RepairStatus = "deferred"
)

type RequiredPart struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Diagnosis is an advisory defect finding attached to a job.
type Diagnosis struct {
	ID            string
	JobID         string
	DefectCode    string
	Severity      Severity
	Measurements  map[string]float64
	RepairAction  *string
	RequiredParts []RequiredPart
	RepairStatus  RepairStatus
	TechnicianID  string
	CreatedAt     time.Time
}

type NewDiagnosisParams struct {
	DefectCode    string
	Severity      Severity
	Measurements  map[string]float64
	RepairAction  *string
	RequiredParts []RequiredPart
	RepairStatus  RepairStatus
	TechnicianID  string
}

func NewDiagnosis(jobID string, p NewDiagnosisParams, at time.Time) (*Diagnosis, error) {
	code := strings.TrimSpace(p.DefectCode)
	if code == "" {
		return nil, domain.InvalidArgument("defect code is required")
	}
	if !p.Severity.IsValid() {
		return nil, domain.InvalidArgument("unknown severity %q", p.Severity)
	}
	for _, part := range p.RequiredParts {
		if strings.TrimSpace(part.SKU) == "" || part.Quantity < 1 {
			return nil, domain.InvalidArgument("required part needs a sku and a positive quantity")
		}
	}
	status := p.RepairStatus
	if status == "" {
		status = RepairStatusPending
	}
	return &Diagnosis{
		ID:            NewRecordID(at),
		JobID:         jobID,
		DefectCode:    code,
		Severity:      p.Severity,
		Measurements:  p.Measurements,
		RepairAction:  p.RepairAction,
		RequiredParts: p.RequiredParts,
		RepairStatus:  status,
		TechnicianID:  p.TechnicianID,
		CreatedAt:     at,
	}, nil
}
