package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/Simplici0/landedcost/internal/config"
	"github.com/Simplici0/landedcost/internal/db"
	"github.com/Simplici0/landedcost/internal/duty"
	"github.com/Simplici0/landedcost/internal/hts"
	"github.com/Simplici0/landedcost/internal/logging"
	"github.com/Simplici0/landedcost/internal/migrations"
	"github.com/Simplici0/landedcost/internal/seed"
)

type server struct {
	db     *sql.DB
	store  *hts.Store
	calc   *duty.Calculator
	batch  *duty.BatchProcessor
	logger *zap.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dutyCfg, err := cfg.Duty()
	if err != nil {
		logger.Fatal("failed to load duty config", zap.Error(err))
	}

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(ctx, database, cfg.MigrationsDir); err != nil {
			logger.Fatal("failed to run database migrations", zap.Error(err))
		}
	}

	seedCfg := seed.Config{Countries: dutyCfg.CountryNames}
	if cfg.IsDev() {
		seedCfg.Entries = seed.DefaultEntries()
	}
	stats, err := seed.Run(ctx, database, seedCfg)
	if err != nil {
		logger.Fatal("failed to seed reference data", zap.Error(err))
	}
	logger.Info("reference data seeded", zap.Int("inserts", stats.Inserts), zap.Int("existing", stats.Existing))

	srv, err := newServer(ctx, database, dutyCfg, cfg.BatchWorkers, logger)
	if err != nil {
		logger.Fatal("failed to build server", zap.Error(err))
	}

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := http.ListenAndServe(addr, srv.routes()); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// newServer wires the engine to the reference store. Country names from the
// database fill in whatever the duty config does not name itself.
func newServer(ctx context.Context, database *sql.DB, dutyCfg duty.Config, workers int, logger *zap.Logger) (*server, error) {
	store := hts.NewStore(database)
	dutyCfg, err := store.CountryConfig(ctx, dutyCfg)
	if err != nil {
		return nil, err
	}

	calc := duty.NewCalculator(dutyCfg)
	return &server{
		db:     database,
		store:  store,
		calc:   calc,
		batch:  duty.NewBatchProcessor(calc, workers, logger),
		logger: logger,
	}, nil
}
