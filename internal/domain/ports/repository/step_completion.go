package repository

import (
	"context"

	"refurb-workflow/internal/domain/model"
)

type StepCompletionRepository interface {
	// Upsert writes the completion keyed by (job, state, step), overwriting
	// any previous record for the same key.
	Upsert(ctx context.Context, tx Tx, sc *model.StepCompletion) error
	// ListByJobState returns completions for (job, state) recorded at or after
	// minAttempt, ordered by completion time.
	ListByJobState(ctx context.Context, tx Tx, jobID string, state model.State, minAttempt int) ([]*model.StepCompletion, error)
	// CountDistinct counts step codes completed for (job, state) at or after minAttempt.
	CountDistinct(ctx context.Context, tx Tx, jobID string, state model.State, minAttempt int) (int, error)
}
