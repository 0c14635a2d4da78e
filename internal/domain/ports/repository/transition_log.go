package repository

import (
	"context"

	"refurb-workflow/internal/domain/model"
)

// TransitionLogRepository is the append-only audit trail of state changes.
type TransitionLogRepository interface {
	Append(ctx context.Context, tx Tx, entry *model.TransitionLogEntry) error
	// ListByJob returns the entries for a job ordered by creation time.
	ListByJob(ctx context.Context, tx Tx, jobID string) ([]*model.TransitionLogEntry, error)
}
