package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"refurb-workflow/internal/config"
	"refurb-workflow/internal/domain/model"
	pg "refurb-workflow/internal/infra/db/postgres"
	"refurb-workflow/internal/infra/logging"
	"refurb-workflow/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	jobRepo := pg.NewPostgresJobRepo(pool)
	jobUC := usecase.NewJobUseCase(
		jobRepo,
		pg.NewPostgresTransitionLogRepo(pool),
		pg.NewPostgresStepCompletionRepo(pool),
		nil,
		pg.NewTxManager(pool),
		cfg.Workflow.DefaultMaxAttempts,
		logger,
	)

	// If jobs already exist, do nothing
	existing, err := jobUC.List(ctx, model.JobFilter{Limit: 10})
	if err != nil {
		log.Fatalf("list jobs: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d+ jobs already present. No changes.\n", len(existing))
		for _, j := range existing {
			fmt.Printf("  - %s %s (%s, %s)\n", j.UnitID, j.State, j.Category, j.Priority)
		}
		return
	}

	// A small pallet covering every priority
	seed := []model.NewJobParams{
		{UnitID: "QL-10001", PalletID: "PAL-DEMO-1", Category: "laptop", Manufacturer: "Lenovo", Model: "T480", Priority: model.PriorityUrgent},
		{UnitID: "QL-10002", PalletID: "PAL-DEMO-1", Category: "laptop", Manufacturer: "Dell", Model: "Latitude 7490", Priority: model.PriorityHigh},
		{UnitID: "QL-10003", PalletID: "PAL-DEMO-1", Category: "phone", Manufacturer: "Apple", Model: "iPhone 12", Priority: model.PriorityNormal},
		{UnitID: "QL-10004", PalletID: "PAL-DEMO-2", Category: "tablet", Manufacturer: "Samsung", Model: "Tab S7", Priority: model.PriorityLow, MaxAttempts: 3},
	}

	for _, p := range seed {
		j, err := jobUC.Create(ctx, p)
		if err != nil {
			log.Fatalf("create job %q: %v", p.UnitID, err)
		}
		fmt.Printf("seeded: %s (id=%s, category=%s, priority=%s)\n", j.UnitID, j.ID, j.Category, j.Priority)
	}

	fmt.Println("Seeding complete.")
}
