package usecase

import (
	"context"

	"refurb-workflow/internal/domain/model"
)

// StatsProvider defines the read-only roll-ups needed by background reporters.
type StatsProvider interface {
	GetStats(ctx context.Context) (*model.Stats, error)
}
