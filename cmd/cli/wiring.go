package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gosim/adapters/postgres"
	"gosim/app"
	"gosim/internal"
	"gosim/internal/config"
	"gosim/internal/metrics"
	"gosim/internal/simulation"
	"gosim/internal/testkit"
	"gosim/ports"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
)

// environment is everything a command needs, built once per invocation
type environment struct {
	cfg     *config.Config
	logger  *internal.Logger
	ledger  ports.LedgerPort
	service *app.InferenceService
	db      *sqlx.DB
	server  *http.Server
}

// overrides are flag values that win over the environment
type overrides struct {
	seed    int64
	trials  int
	workers int
	alpha   float64
	level   float64
}

func newEnvironment(ctx context.Context, flags overrides, setFlags func(name string) bool) (*environment, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if setFlags("seed") {
		cfg.Simulation.Seed, cfg.Simulation.HasSeed = flags.seed, true
	}
	if setFlags("trials") {
		cfg.Simulation.Trials = flags.trials
	}
	if setFlags("workers") {
		cfg.Simulation.Workers = flags.workers
	}
	if setFlags("alpha") {
		cfg.Simulation.Alpha = flags.alpha
	}
	if setFlags("level") {
		cfg.Simulation.Confidence = flags.level
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	env := &environment{cfg: cfg, logger: logger}

	if cfg.Database.Enabled() {
		db, err := postgres.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		env.db = db
		env.ledger = postgres.NewRunRepository(db)
		logger.Debug("recording runs in PostgreSQL")
	} else {
		env.ledger = testkit.NewInMemoryLedgerAdapter()
	}

	opts := []simulation.Option{
		simulation.WithWorkers(cfg.Simulation.Workers),
		simulation.WithLogger(logger),
	}
	if cfg.Metrics.Addr != "" {
		m := metrics.New()
		opts = append(opts, simulation.WithProgress(m))
		env.server = &http.Server{Addr: cfg.Metrics.Addr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := env.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server: %v", err)
			}
		}()
		logger.Info("serving metrics on %s", cfg.Metrics.Addr)
	}

	env.service = app.NewInferenceService(cfg.Simulation, simulation.NewRunner(opts...), env.ledger, logger)
	return env, nil
}

func (e *environment) Close() {
	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.server.Shutdown(ctx)
	}
	if e.db != nil {
		_ = e.db.Close()
	}
	_ = e.logger.Sync()
}
