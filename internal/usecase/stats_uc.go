package usecase

import (
	"context"
	"time"

	"refurb-workflow/internal/domain/model"
	"refurb-workflow/internal/domain/ports/repository"
	ucport "refurb-workflow/internal/domain/ports/usecase"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)
var _ ucport.StatsProvider = (*statsUC)(nil)

type StatsUseCase interface {
	GetStats(ctx context.Context) (*model.Stats, error)
}

type statsUC struct {
	jobs repository.JobRepository
	loc  *time.Location
	now  func() time.Time

	log *zerolog.Logger
}

// NewStatsUseCase builds the aggregator. "Today" is the calendar day in loc.
func NewStatsUseCase(jobs repository.JobRepository, loc *time.Location, logger *zerolog.Logger) *statsUC {
	if loc == nil {
		loc = time.UTC
	}
	return &statsUC{jobs: jobs, loc: loc, now: time.Now, log: logger}
}

func (s *statsUC) GetStats(ctx context.Context) (*model.Stats, error) {
	total, err := s.jobs.CountAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	byState, err := s.jobs.CountByState(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.jobs.CountByCategory(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	byPriority, err := s.jobs.CountByPriority(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	from, to := dayBounds(s.now(), s.loc)
	today, err := s.jobs.CountCompletedBetween(ctx, repository.NoTX, from, to)
	if err != nil {
		return nil, err
	}
	avg, samples, err := s.jobs.AverageCycleTime(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &model.Stats{
		Total:              total,
		ByState:            byState,
		ByCategory:         byCategory,
		ByPriority:         byPriority,
		CompletedToday:     today,
		AverageCycleTime:   avg,
		CycleTimeSampleCnt: samples,
	}, nil
}

// dayBounds returns [midnight, next midnight) of now's calendar day in loc, in UTC.
func dayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// WithClock replaces the wall clock used to find "today".
func (s *statsUC) WithClock(now func() time.Time) *statsUC {
	s.now = now
	return s
}
