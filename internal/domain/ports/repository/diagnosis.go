package repository

import (
	"context"

	"refurb-workflow/internal/domain/model"
)

type DiagnosisRepository interface {
	Save(ctx context.Context, tx Tx, d *model.Diagnosis) error
	// ListByJob returns diagnoses most recent first.
	ListByJob(ctx context.Context, tx Tx, jobID string) ([]*model.Diagnosis, error)
}
