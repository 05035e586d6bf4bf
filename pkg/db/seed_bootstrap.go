package db

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/attribute-converter/pkg/bootstrap"
)

const seedBootstrapLogPrefix = "db:seed_bootstrap"

// SeedBootstrap loads the bootstrap document at path (or the usual candidates when path
// is empty), validates it and upserts its services and conversions in one transaction.
// Seeding the same file twice leaves the tables unchanged.
func SeedBootstrap(ctx context.Context, pool *pgxpool.Pool, path string) error {
	cfg, from, err := bootstrap.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("%s - load bootstrap config: %w", seedBootstrapLogPrefix, err)
	}
	if path != "" && from != path {
		return fmt.Errorf("%s - bootstrap file %s could not be loaded", seedBootstrapLogPrefix, path)
	}
	slog.Info(fmt.Sprintf("%s - seeding from %s", seedBootstrapLogPrefix, displayPath(from)))
	return SeedConfig(ctx, pool, cfg)
}

// SeedConfig upserts cfg's services and conversions in one transaction.
func SeedConfig(ctx context.Context, pool *pgxpool.Pool, cfg *bootstrap.Config) error {
	if err := bootstrap.Validate(cfg); err != nil {
		return fmt.Errorf("%s - %w", seedBootstrapLogPrefix, err)
	}
	if len(cfg.Services) == 0 && len(cfg.Conversions) == 0 {
		slog.Info(fmt.Sprintf("%s - nothing to seed", seedBootstrapLogPrefix))
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s - begin tx: %w", seedBootstrapLogPrefix, err)
	}
	defer tx.Rollback(ctx)

	repo := NewRepository(pool).WithTx(tx)

	names := make([]string, 0, len(cfg.Services))
	for name := range cfg.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		svc := cfg.Services[name]
		if _, err := repo.UpsertService(ctx, UpsertServiceParams{Name: name, BaseURL: svc.BaseURL, Description: svc.Description}); err != nil {
			return err
		}
	}

	for _, conv := range cfg.Conversions {
		_, err := repo.UpsertConversion(ctx, UpsertConversionParams{
			Source:      conv.Source,
			Target:      conv.Target,
			Service:     conv.Service,
			Method:      conv.EffectiveMethod(),
			Args:        conv.Args,
			Body:        conv.Body,
			Via:         conv.Via,
			Version:     conv.EffectiveVersion(),
			Status:      conv.Status,
			Description: conv.Description,
		})
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s - commit: %w", seedBootstrapLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Seeded %d services and %d conversions", seedBootstrapLogPrefix, len(names), len(cfg.Conversions)))
	return nil
}

func displayPath(p string) string {
	if p == "" {
		return "built-in default"
	}
	return p
}
