package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearConverter removes all conversions and services. The schema is kept.
func ClearConverter(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing converter tables", clearLogPrefix))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE conversions, services CASCADE`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Converter tables cleared", clearLogPrefix))
	return nil
}
