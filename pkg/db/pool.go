// Package db stores the converter's services and conversions in Postgres via pgx.
package db

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const logPrefix = "db:pool"

// NewPool creates a new pgx connection pool from the given database URL.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	slog.Info(fmt.Sprintf("%s - Connecting to database", logPrefix))

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database URL: %w", logPrefix, err)
	}

	// Tables are only read on startup and reload.
	config.MaxConns = 8
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", logPrefix, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Database connection established", logPrefix))
	return pool, nil
}

// RunMigrations applies SQL migration files in order.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrationFiles []string) error {
	slog.Info(fmt.Sprintf("%s - Running %d migrations", logPrefix, len(migrationFiles)))

	for i, sql := range migrationFiles {
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("%s - migration %d failed: %w", logPrefix, i+1, err)
		}
	}

	slog.Info(fmt.Sprintf("%s - Migrations complete", logPrefix))
	return nil
}

// SchemaApplied reports whether the conversions table exists.
func SchemaApplied(ctx context.Context, pool *pgxpool.Pool) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'conversions')`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s - failed to check schema: %w", logPrefix, err)
	}
	return exists, nil
}

// MigrationStatus writes whether the schema is present to w.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, migrationPath string, w io.Writer) error {
	exists, err := SchemaApplied(ctx, pool)
	if err != nil {
		return err
	}
	files, err := LoadMigrationFiles(migrationPath)
	if err != nil {
		return fmt.Errorf("%s - load migration list: %w", logPrefix, err)
	}

	if exists {
		fmt.Fprintf(w, "Migration status: applied (schema present, %d migration files in %s)\n", len(files), migrationPath)
	} else {
		fmt.Fprintf(w, "Migration status: not applied (run 'converter migrate up'). %d migration files in %s\n", len(files), migrationPath)
	}
	return nil
}

// MigrationDown applies the newest rollback file from migrationPath.
func MigrationDown(ctx context.Context, pool *pgxpool.Pool, migrationPath string) error {
	downs, err := LoadDownMigrationFiles(migrationPath)
	if err != nil {
		return err
	}
	if len(downs) == 0 {
		return fmt.Errorf("%s - no .down.sql files in %s", logPrefix, migrationPath)
	}
	slog.Info(fmt.Sprintf("%s - Rolling back the latest migration", logPrefix))
	if _, err := pool.Exec(ctx, downs[0]); err != nil {
		return fmt.Errorf("%s - rollback failed: %w", logPrefix, err)
	}
	return nil
}
