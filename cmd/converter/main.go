// Package main is the entrypoint for the attribute converter (binary name "converter").
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/attribute-converter/internal/config"
	"github.com/morezero/attribute-converter/internal/server"
	"github.com/morezero/attribute-converter/pkg/converter"
	"github.com/morezero/attribute-converter/pkg/db"
	"github.com/morezero/attribute-converter/pkg/dispatcher"
	"github.com/morezero/attribute-converter/pkg/semver"
)

const usage = `Usage: converter [command]
       converter serve                           Start the converter (NATS, HTTP).
       converter migrate up                      Run database migrations.
       converter migrate down                    Roll back the newest migration.
       converter migrate status                  Show migration status.
       converter ensure-db [name]                Create database if missing (default name: converter_test). Uses DATABASE_URL host/user.
       converter clear                           Truncate services and conversions; schema is preserved.
       converter seed [file]                     Seed services and conversions from a bootstrap file.
       converter convert <source:target[@range]> <data>
                                                 Convert one value and print the result.
       converter list                            List the configured conversions.

Commands:
  serve            (default) Start the attribute converter.
  migrate up       Run database migrations only.
  migrate down     Roll back the newest migration (needs a matching .down.sql).
  migrate status   Show current migration status.
  ensure-db [name] Create database (e.g. converter_test) on same host as DATABASE_URL; then run tests with that URL.
  clear            Truncate converter data; schema preserved.
  seed [file]      Seed from a bootstrap file (default: CONVERTER_BOOTSTRAP_FILE, then the first of
                   config/converter.json, config/converter.yaml, converter.json). JSON, YAML or TOML.
  convert          One-shot conversion against the configured store, without NATS.
  list             Print every registered conversion.

Environment: CONVERTER_STORE (file|postgres), CONVERTER_BOOTSTRAP_FILE, CONVERTER_BOOTSTRAP_OVERRIDE,
DATABASE_URL (postgres store and database commands), MIGRATION_PATH, CONVERTER_HTTP_ADDR or HTTP_PORT,
COMMS_URL, CONVERTER_MAX_IN_FLIGHT, RETRY_BUDGET. The full list is in internal/config/config.go.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("converter migrate: require subcommand (up, down, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("converter migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("converter migrate status: %v", err)
			}
		case "down":
			if err := runMigrateDown(); err != nil {
				log.Fatalf("converter migrate down: %v", err)
			}
		default:
			log.Fatalf("converter migrate: unknown subcommand %q (use up, down, status)", sub)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("converter clear: %v", err)
		}
		return
	case "seed":
		bootstrapFile := ""
		if len(args) > 1 {
			bootstrapFile = args[1]
		}
		if err := runSeed(bootstrapFile); err != nil {
			log.Fatalf("converter seed: %v", err)
		}
		return
	case "ensure-db":
		dbName := "converter_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("converter ensure-db: %v", err)
		}
		return
	case "convert":
		input, err := parseConvertArgs(args[1:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "converter convert: %v\n%s", err, usage)
			os.Exit(2)
		}
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("converter convert: load config: %v", err)
		}
		if err := runConvert(context.Background(), cfg, input, os.Stdout); err != nil {
			log.Fatalf("converter convert: %v", err)
		}
		return
	case "list":
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("converter list: load config: %v", err)
		}
		if err := runList(context.Background(), cfg, os.Stdout); err != nil {
			log.Fatalf("converter list: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
		break
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("converter: %v", err)
	}
}

// parseConvertArgs reads "<source:target[@range]> <data>". Data may be empty but must be given.
func parseConvertArgs(args []string) (converter.ConvertInput, error) {
	if len(args) != 2 {
		return converter.ConvertInput{}, errors.New("expected <source:target[@range]> <data>")
	}
	ref, err := semver.ParseConversionRef(args[0])
	if err != nil {
		return converter.ConvertInput{}, err
	}
	if err := semver.ValidateRange(ref.Range); err != nil {
		return converter.ConvertInput{}, err
	}
	return converter.ConvertInput{Source: ref.Source, Target: ref.Target, Data: args[1], Version: ref.Range}, nil
}

func runConvert(ctx context.Context, cfg *config.Config, input converter.ConvertInput, w io.Writer) error {
	disp, cleanup, err := server.NewLocalDispatcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
	}
	res, err := disp.Convert(ctx, input)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, res.Value)
	return err
}

func runList(ctx context.Context, cfg *config.Config, w io.Writer) error {
	disp, cleanup, err := server.NewLocalDispatcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tTARGET\tVERSION\tSTATUS\tDESCRIPTION")
	for _, c := range disp.ListConversions(dispatcher.ListConversionsInput{}).Conversions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Source, c.Target, c.Version, c.Status, c.Description)
	}
	return tw.Flush()
}

// withPool loads config, checks DATABASE_URL and runs fn with an open pool.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func runMigrateUp() error {
	return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
		migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
		if err != nil {
			return fmt.Errorf("load migrations: %w", err)
		}
		if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		return nil
	})
}

func runMigrateStatus() error {
	return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
		return db.MigrationStatus(ctx, pool, cfg.MigrationPath, os.Stdout)
	})
}

func runMigrateDown() error {
	return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
		return db.MigrationDown(ctx, pool, cfg.MigrationPath)
	})
}

func runClear() error {
	return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
		if err := db.ClearConverter(ctx, pool); err != nil {
			return fmt.Errorf("clear converter: %w", err)
		}
		return nil
	})
}

func runSeed(bootstrapFileOverride string) error {
	return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
		path := bootstrapFileOverride
		if path == "" {
			path = cfg.BootstrapFile
		}
		if err := db.SeedBootstrap(ctx, pool, path); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		return nil
	})
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	targetURL, err := db.WithDatabaseName(cfg.DatabaseURL, dbName)
	if err != nil {
		return err
	}
	if err := db.EnsureDatabase(context.Background(), targetURL); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready.\n", dbName)
	return nil
}
