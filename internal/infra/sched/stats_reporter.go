package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"refurb-workflow/internal/domain/model"
	ucport "refurb-workflow/internal/domain/ports/usecase"
	"refurb-workflow/internal/infra/metrics"
)

// StatsReporter periodically publishes job roll-ups and pool stats as gauges.
type StatsReporter struct {
	interval time.Duration
	stats    ucport.StatsProvider
	pool     func() metrics.PoolSnapshot // optional
	log      *zerolog.Logger
}

func NewStatsReporter(interval time.Duration, stats ucport.StatsProvider, pool func() metrics.PoolSnapshot, logger *zerolog.Logger) *StatsReporter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	l := logger.With().Str("component", "StatsReporter").Logger()
	return &StatsReporter{interval: interval, stats: stats, pool: pool, log: &l}
}

// Run reports once immediately and then on every tick until ctx is done.
func (r *StatsReporter) Run(ctx context.Context) error {
	r.log.Info().Dur("interval", r.interval).Msg("Starting stats reporter")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.report(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("Stopping stats reporter")
			return ctx.Err()
		case <-ticker.C:
			r.report(ctx)
		}
	}
}

func (r *StatsReporter) report(ctx context.Context) {
	if r.pool != nil {
		metrics.SetDBPoolStats(r.pool())
	}
	runCtx, cancel := context.WithTimeout(ctx, r.interval)
	defer cancel()
	st, err := r.stats.GetStats(runCtx)
	if err != nil {
		r.log.Error().Err(err).Msg("stats refresh failed")
		return
	}
	metrics.SetJobsByState(stateNames(), byStateName(st))
	r.log.Debug().Int("total", st.Total).Int("completed_today", st.CompletedToday).Msg("stats refreshed")
}

func stateNames() []string {
	out := make([]string, len(model.AllStates))
	for i, s := range model.AllStates {
		out[i] = string(s)
	}
	return out
}

func byStateName(st *model.Stats) map[string]int {
	out := make(map[string]int, len(st.ByState))
	for k, v := range st.ByState {
		out[string(k)] = v
	}
	return out
}
