package postgres

import (
	"context"
	"errors"
	"time"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/domain/ports/repository"
	"refurb-workflow/internal/infra/metrics"
	red "refurb-workflow/internal/infra/redis"
)

var _ repository.JobRepository = (*jobRepoUnitCache)(nil)

// jobRepoUnitCache remembers which job id a scanned unit id belongs to.
// Only the mapping is cached; the job row itself is always read from inner,
// so state and attempt counters are never stale.
type jobRepoUnitCache struct {
	repository.JobRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewJobRepoUnitCache(inner repository.JobRepository, cache red.RedisClient, ttl time.Duration) repository.JobRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &jobRepoUnitCache{JobRepository: inner, cache: cache, ttl: ttl}
}

func unitKey(unitID string) string { return "unit_job:" + unitID }

func (d *jobRepoUnitCache) FindByUnitID(ctx context.Context, tx repository.Tx, unitID string) (*model.Job, error) {
	key := unitKey(unitID)
	id, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		job, ferr := d.JobRepository.FindByID(ctx, tx, id)
		if ferr == nil && job.UnitID == unitID {
			metrics.IncCacheRequest("unit_job", "hit")
			return job, nil
		}
		if ferr != nil && !errors.Is(ferr, domain.ErrNotFound) {
			return nil, ferr
		}
		// stale mapping
		_ = d.cache.Del(ctx, key)
		metrics.IncCacheRequest("unit_job", "stale")
	case errors.Is(err, red.Nil):
		metrics.IncCacheRequest("unit_job", "miss")
	default:
		metrics.IncCacheRequest("unit_job", "error")
	}

	job, err := d.JobRepository.FindByUnitID(ctx, tx, unitID)
	if err != nil {
		return nil, err
	}
	_ = d.cache.Set(ctx, key, job.ID, d.ttl)
	return job, nil
}
