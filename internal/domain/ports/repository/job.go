package repository

import (
	"context"
	"time"

	"refurb-workflow/internal/domain/model"
)

// JobRepository is the port for job records. Jobs are never deleted.
type JobRepository interface {
	// Create inserts a new job. Returns domain.ErrDuplicateIdentity when the
	// unit id is already taken.
	Create(ctx context.Context, tx Tx, job *model.Job) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Job, error)
	// FindByIDForUpdate loads the job and holds a row lock until tx ends.
	// Callers must pass a real transaction.
	FindByIDForUpdate(ctx context.Context, tx Tx, id string) (*model.Job, error)
	FindByUnitID(ctx context.Context, tx Tx, unitID string) (*model.Job, error)
	List(ctx context.Context, tx Tx, filter model.JobFilter) ([]*model.Job, error)
	Update(ctx context.Context, tx Tx, job *model.Job) error
	UpdateStepIndex(ctx context.Context, tx Tx, id string, index int, updatedAt time.Time) error

	// --- Statistics read-only methods ---
	CountAll(ctx context.Context, tx Tx) (int, error)
	CountByState(ctx context.Context, tx Tx) (map[model.State]int, error)
	CountByCategory(ctx context.Context, tx Tx) (map[string]int, error)
	CountByPriority(ctx context.Context, tx Tx) (map[model.Priority]int, error)
	// CountCompletedBetween counts jobs in COMPLETE whose completed_at is in [from, to).
	CountCompletedBetween(ctx context.Context, tx Tx, from, to time.Time) (int, error)
	// AverageCycleTime averages completed_at - started_at over COMPLETE jobs.
	AverageCycleTime(ctx context.Context, tx Tx) (avg time.Duration, samples int, err error)
}
