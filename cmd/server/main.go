// Package main implements the entry point for the exercise API server,
// which accepts exercise generation requests, runs them on a background
// worker pool and exports the results as downloadable documents.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata" // stats.time_zone must resolve on minimal images
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a goose migration command (up, down, status, version, reset, validate) and exit")
	flag.Parse()

	if err := run(*migrateCmd); err != nil {
		fmt.Fprintf(os.Stderr, "exercise-api: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, sets up logging and either executes a migration
// command or serves HTTP until SIGINT/SIGTERM.
func run(migrateCmd string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	logger, err := setupAppLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if migrateCmd != "" {
		if cfg.Database.Driver != "postgres" {
			return fmt.Errorf("migrations require database.driver=postgres, got %q", cfg.Database.Driver)
		}
		db, err := setupAppDatabase(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := db.Close(); cerr != nil {
				logger.Error("Error closing database connection", "error", cerr)
			}
		}()
		return runMigrations(ctx, db, migrateCmd, logger)
	}

	app, err := newApplication(ctx, cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
