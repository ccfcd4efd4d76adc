package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/phrazzld/exercise-api/internal/platform/postgres"
	"github.com/pressly/goose/v3"
)

// migrationRecord is one row of the goose version table.
type migrationRecord struct {
	Version   int64
	IsApplied bool
}

// validateAppliedMigrations checks that every embedded migration is recorded
// as applied. It never changes the schema. goose must already be configured
// with the embedded filesystem and dialect.
func validateAppliedMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	start := time.Now()

	migrations, err := goose.CollectMigrations(postgres.MigrationsDir, 0, goose.MaxVersion)
	if err != nil {
		return fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	expected := make([]int64, 0, len(migrations))
	for _, m := range migrations {
		expected = append(expected, m.Version)
	}

	records, err := loadMigrationRecords(ctx, db)
	if err != nil {
		logger.Error("Failed to query migration history", "error", err)
		return err
	}

	if missing := missingMigrations(expected, records); len(missing) > 0 {
		logger.Error("Not all migrations have been applied",
			"missing_versions", missing,
			"expected_count", len(expected))
		return fmt.Errorf("migrations not applied: %v", missing)
	}

	logger.Info("Migration validation completed successfully",
		"migrations_applied", len(expected),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func loadMigrationRecords(ctx context.Context, db *sql.DB) ([]migrationRecord, error) {
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf("SELECT version_id, is_applied FROM %s ORDER BY id", goose.TableName()))
	if err != nil {
		return nil, fmt.Errorf("failed to query migration history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []migrationRecord
	for rows.Next() {
		var r migrationRecord
		if err := rows.Scan(&r.Version, &r.IsApplied); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error while iterating migration rows: %w", err)
	}
	return records, nil
}

// missingMigrations returns the expected versions whose latest record is not
// applied. records must be in insertion order; a rollback appends a row with
// IsApplied false.
func missingMigrations(expected []int64, records []migrationRecord) []int64 {
	applied := make(map[int64]bool, len(records))
	for _, r := range records {
		applied[r.Version] = r.IsApplied
	}

	var missing []int64
	for _, v := range expected {
		if !applied[v] {
			missing = append(missing, v)
		}
	}
	slices.Sort(missing)
	return missing
}
