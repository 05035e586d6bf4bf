// Package server orchestrates all components: NATS client, conversion store, dispatcher, HTTP endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/attribute-converter/internal/config"
	"github.com/morezero/attribute-converter/pkg/bootstrap"
	"github.com/morezero/attribute-converter/pkg/commsutil"
	"github.com/morezero/attribute-converter/pkg/db"
	"github.com/morezero/attribute-converter/pkg/dispatcher"
	"github.com/morezero/attribute-converter/pkg/events"
	"github.com/morezero/attribute-converter/pkg/transport"
)

const logPrefix = "server:server"

// Server is the attribute-converter orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	pool       *pgxpool.Pool
	sub        *comms.Subscription
	listener   net.Listener
	httpServer *http.Server
	builder    *snapshotBuilder
	disp       *dispatcher.Dispatcher
	// configPath is the bootstrap file the current snapshot came from, if any.
	configPath string
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: ParseLogLevel(cfg.LogLevel)})))

	slog.Info(fmt.Sprintf("%s - Starting attribute-converter", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		s.Close()
		return err
	}

	slog.Info(fmt.Sprintf("%s - attribute-converter is ready", logPrefix))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	cancel()
	s.Shutdown(context.Background())
	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// ParseLogLevel maps LOG_LEVEL values to slog levels; unknown values mean info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New connects to NATS and, for the postgres store, the database, then loads the first
// conversion snapshot. Nothing is served until Start.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}

	// Step 1: Connect to NATS
	nc, err := commsutil.Connect(commsutil.ConnectParams{URL: cfg.COMMSURL, Name: cfg.COMMSName})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to NATS: %w", logPrefix, err)
	}
	s.nc = nc
	slog.Info(fmt.Sprintf("%s - Connected to NATS at %s", logPrefix, cfg.COMMSURL))

	// Step 2: Connect to database when conversions live there
	if cfg.UsesDatabase() {
		if err := s.openDatabase(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}

	// Step 3: Shared HTTP session, publisher and first snapshot
	session := transport.NewHTTPSession(transport.SessionConfig{
		Timeout:      cfg.HTTPClientTimeout,
		MaxIdleConns: cfg.HTTPMaxIdleConns,
	})
	s.builder = &snapshotBuilder{
		executor:    transport.NewExecutor(transport.ExecutorConfig{Backoff: cfg.RetryBackoff}),
		retryBudget: routerRetryBudget(cfg.RetryBudget),
		publisher:   events.NewCommsPublisher(nc, &events.CommsPublisherOpts{GlobalSubject: cfg.ConversionEventSubject}),
	}

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.disp = dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{Session: session, Snapshot: snap})
	slog.Info(fmt.Sprintf("%s - Loaded %d conversions from %s", logPrefix, snap.Converter.Capabilities().Len(), snap.Origin))
	return s, nil
}

func (s *Server) openDatabase(ctx context.Context) error {
	pool, err := db.NewPool(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	s.pool = pool

	if s.cfg.RunMigrations {
		migrationSQL, err := db.LoadMigrationFiles(s.cfg.MigrationPath)
		if err != nil {
			return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
			return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
		if err := db.SeedBootstrap(ctx, pool, s.cfg.BootstrapFile); err != nil {
			return fmt.Errorf("%s - failed to seed conversions: %w", logPrefix, err)
		}
	}
	return nil
}

// loadSnapshot reads the conversion configuration from the configured store.
func (s *Server) loadSnapshot(ctx context.Context) (*dispatcher.Snapshot, error) {
	doc, path, origin, err := loadDocument(ctx, s.cfg, s.pool)
	if err != nil {
		return nil, err
	}
	s.configPath = path
	return s.builder.build(doc, origin)
}

// loadDocument returns the conversion document, the bootstrap file it came from (empty for
// postgres or the built-in default) and a display origin.
func loadDocument(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*bootstrap.Config, string, string, error) {
	if cfg.UsesDatabase() {
		doc, err := db.NewRepository(pool).LoadConfig(ctx)
		if err != nil {
			return nil, "", "", fmt.Errorf("%s - failed to load conversions from database: %w", logPrefix, err)
		}
		doc, err = applyOverride(cfg, doc)
		if err != nil {
			return nil, "", "", err
		}
		return doc, "", config.StorePostgres, nil
	}

	doc, path, err := bootstrap.LoadConfig(cfg.BootstrapFile)
	if err != nil {
		return nil, "", "", fmt.Errorf("%s - failed to load bootstrap config: %w", logPrefix, err)
	}
	origin := path
	if origin == "" {
		origin = "default"
	}
	doc, err = applyOverride(cfg, doc)
	if err != nil {
		return nil, "", "", err
	}
	if cfg.BootstrapOverride != "" {
		origin += " + " + cfg.BootstrapOverride
	}
	return doc, path, origin, nil
}

// applyOverride merges CONVERTER_BOOTSTRAP_OVERRIDE onto doc. It returns doc unchanged
// when no override is configured.
func applyOverride(cfg *config.Config, doc *bootstrap.Config) (*bootstrap.Config, error) {
	if cfg.BootstrapOverride == "" {
		return doc, nil
	}
	override, err := bootstrap.LoadFile(cfg.BootstrapOverride)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load bootstrap override: %w", logPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Applying bootstrap override %s (%d services, %d conversions)",
		logPrefix, cfg.BootstrapOverride, len(override.Services), len(override.Conversions)))
	return bootstrap.MergeConfigs(doc, override), nil
}

// Start subscribes to the converter subject, starts the HTTP server and, when enabled,
// the bootstrap file watcher.
func (s *Server) Start(ctx context.Context) error {
	subject := s.cfg.ConverterSubject
	if subject == "" {
		subject = commsutil.SubjectConverter
	}
	sub, err := s.disp.Subscribe(ctx, dispatcher.SubscribeParams{
		Conn:        s.nc,
		Subject:     subject,
		Timeout:     s.cfg.RequestTimeout,
		MaxInFlight: s.cfg.MaxInFlight,
	})
	if err != nil {
		return err
	}
	s.sub = sub
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, subject))

	addr := s.cfg.ListenAddr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s - failed to listen on %s: %w", logPrefix, addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.routes()}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, ln.Addr()))
		if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	if s.cfg.AutoReload {
		s.startWatcher(ctx)
	}
	return nil
}

func (s *Server) startWatcher(ctx context.Context) {
	path := s.configPath
	if path == "" {
		path = s.cfg.BootstrapFile
	}
	if path == "" {
		slog.Warn(fmt.Sprintf("%s - CONVERTER_AUTO_RELOAD is set but no bootstrap file is in use", logPrefix))
		return
	}
	go func() {
		err := bootstrap.Watch(ctx, path, s.cfg.ReloadDebounce, func(doc *bootstrap.Config) {
			doc, err := applyOverride(s.cfg, doc)
			if err != nil {
				slog.Warn(fmt.Sprintf("%s - keeping previous conversions: %v", logPrefix, err))
				return
			}
			snap, err := s.builder.build(doc, path)
			if err != nil {
				slog.Warn(fmt.Sprintf("%s - keeping previous conversions, reload of %s failed: %v", logPrefix, path, err))
				return
			}
			s.disp.Swap(snap)
			slog.Info(fmt.Sprintf("%s - Reloaded %d conversions from %s", logPrefix, snap.Converter.Capabilities().Len(), path))
		})
		if err != nil && ctx.Err() == nil {
			slog.Error(fmt.Sprintf("%s - bootstrap watcher stopped: %v", logPrefix, err))
		}
	}()
	slog.Info(fmt.Sprintf("%s - Watching %s for changes", logPrefix, path))
}

// Addr returns the HTTP listen address once Start has run.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Dispatcher returns the request dispatcher.
func (s *Server) Dispatcher() *dispatcher.Dispatcher {
	return s.disp
}

// Shutdown stops serving and releases every connection.
func (s *Server) Shutdown(ctx context.Context) {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			slog.Warn(fmt.Sprintf("%s - unsubscribe: %v", logPrefix, err))
		}
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			slog.Warn(fmt.Sprintf("%s - HTTP shutdown: %v", logPrefix, err))
		}
	}
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			slog.Warn(fmt.Sprintf("%s - NATS drain: %v", logPrefix, err))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// Close releases connections without a graceful drain. Used when startup fails.
func (s *Server) Close() {
	if s.httpServer != nil {
		s.httpServer.Close()
	}
	if s.nc != nil {
		s.nc.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
