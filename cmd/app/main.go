// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"refurb-workflow/internal/config"
	"refurb-workflow/internal/domain/ports/adapter"
	"refurb-workflow/internal/domain/ports/repository"
	"refurb-workflow/internal/infra/api"
	apiv1 "refurb-workflow/internal/infra/api/apiv1"
	"refurb-workflow/internal/infra/catalog"
	pg "refurb-workflow/internal/infra/db/postgres"
	"refurb-workflow/internal/infra/directory"
	"refurb-workflow/internal/infra/logging"
	"refurb-workflow/internal/infra/metrics"
	red "refurb-workflow/internal/infra/redis"
	"refurb-workflow/internal/infra/sched"
	"refurb-workflow/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, debug level)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("refurb-workflow stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.SetBuildInfo(version, commit)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Repositories ----
	var jobRepo repository.JobRepository = pg.NewPostgresJobRepo(pool)
	logRepo := pg.NewPostgresTransitionLogRepo(pool)
	stepRepo := pg.NewPostgresStepCompletionRepo(pool)
	diagRepo := pg.NewPostgresDiagnosisRepo(pool)

	// ---- Redis (optional unit lookup cache) ----
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
		jobRepo = pg.NewJobRepoUnitCache(jobRepo, redisClient, cfg.Redis.TTL)
		logger.Info().Str("ttl", cfg.Redis.TTL.String()).Msg("unit lookup cache enabled")
	}

	// ---- Collaborators ----
	var steps adapter.StepCatalog
	if cfg.Catalog.Path != "" {
		c, err := catalog.Load(cfg.Catalog.Path)
		if err != nil {
			return err
		}
		steps = c
		logger.Info().Str("path", cfg.Catalog.Path).Msg("SOP catalog loaded")
	}
	var techs adapter.TechnicianDirectory
	if len(cfg.Technicians) > 0 {
		d, err := directory.NewStatic(cfg.Technicians)
		if err != nil {
			return fmt.Errorf("technicians: %w", err)
		}
		techs = d
		logger.Info().Int("technicians", d.Len()).Msg("technician directory loaded")
	}

	// ---- Use cases ----
	transitionUC := usecase.NewTransitionUseCase(jobRepo, logRepo, stepRepo, techs, tm, logger)
	jobUC := usecase.NewJobUseCase(jobRepo, logRepo, stepRepo, techs, tm, cfg.Workflow.DefaultMaxAttempts, logger)
	stepUC := usecase.NewStepUseCase(jobRepo, logRepo, stepRepo, steps, techs, tm, logger)
	promptUC := usecase.NewPromptUseCase(jobRepo, stepRepo, steps, logger)
	certUC := usecase.NewCertificationUseCase(transitionUC, logger)
	diagUC := usecase.NewDiagnosisUseCase(jobRepo, diagRepo, techs, logger)
	statsUC := usecase.NewStatsUseCase(jobRepo, cfg.Stats.Location(), logger)

	// ---- API ----
	srv := apiv1.NewServer(apiv1.Deps{
		Jobs:          metrics.InstrumentJobs(jobUC),
		Transitions:   metrics.InstrumentTransitions(transitionUC),
		Steps:         metrics.InstrumentSteps(stepUC),
		Prompts:       promptUC,
		Certification: metrics.InstrumentCertification(certUC),
		Diagnoses:     diagUC,
		Stats:         statsUC,
		Auth:          api.TechnicianAuth(cfg.Auth, logger),
	}, logger)
	if cfg.Auth.JWTSecret == "" && cfg.Auth.APIKey == "" {
		logger.Warn().Msg("auth.jwt_secret and auth.api_key are empty; API is unauthenticated")
	}

	r := chi.NewRouter()
	r.Use(api.TraceID(), api.RequestLog(logger), api.Recover(logger), api.Timeout(cfg.HTTP.RequestTimeout))
	apiv1.RegisterAPIV1(r, srv)

	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	adminServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler:           api.NewAdminHandler(pool.Ping),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 2)
	for _, s := range []*http.Server{apiServer, adminServer} {
		go func(s *http.Server) {
			logger.Info().Str("addr", s.Addr).Msg("http server listening")
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("listen %s: %w", s.Addr, err)
			}
		}(s)
	}

	// ---- Stats reporter ----
	reporter := sched.NewStatsReporter(cfg.Stats.RefreshInterval, statsUC, func() metrics.PoolSnapshot {
		return pg.PoolSnapshot(pool)
	}, logger)
	go func() { _ = reporter.Run(ctx) }()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		logger.Error().Err(err).Msg("server failed")
		stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, s := range []*http.Server{apiServer, adminServer} {
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Str("addr", s.Addr).Msg("shutdown")
		}
	}
	return nil
}
