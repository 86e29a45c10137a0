package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"gosim/adapters/postgres"
	"gosim/adapters/postgres/migrations"
	"gosim/internal"
	"gosim/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) > 2 {
		log.Fatal("Usage: migrate [up|status]")
	}
	command := "up"
	if len(os.Args) == 2 {
		command = os.Args[1]
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.Database.Enabled() {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	db, err := postgres.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	defer logger.Sync()
	migrator := migrations.NewMigrator(db, migrations.Files(), logger)

	switch command {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			log.Fatalf("Failed to read migration status: %v", err)
		}
		applied := 0
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
				applied++
			}
			fmt.Printf("  %s: %s\n", s.Name, state)
		}
		fmt.Printf("\nSummary: %d/%d migrations applied\n", applied, len(statuses))
	default:
		log.Fatalf("unknown command %q (want up or status)", command)
	}
}
