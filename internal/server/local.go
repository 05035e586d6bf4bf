package server

import (
	"context"
	"fmt"

	"github.com/morezero/attribute-converter/internal/config"
	"github.com/morezero/attribute-converter/pkg/db"
	"github.com/morezero/attribute-converter/pkg/dispatcher"
	"github.com/morezero/attribute-converter/pkg/transport"
)

// NewLocalDispatcher builds a dispatcher from the configured store without connecting to
// COMMS, for one-shot CLI conversions. Conversion events are discarded. The returned
// func releases the database pool, if one was opened.
func NewLocalDispatcher(ctx context.Context, cfg *config.Config) (*dispatcher.Dispatcher, func(), error) {
	cleanup := func() {}
	var s Server
	s.cfg = cfg
	if cfg.UsesDatabase() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, cleanup, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		s.pool = pool
		cleanup = pool.Close
	}

	s.builder = &snapshotBuilder{
		executor:    transport.NewExecutor(transport.ExecutorConfig{Backoff: cfg.RetryBackoff}),
		retryBudget: routerRetryBudget(cfg.RetryBudget),
	}
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	session := transport.NewHTTPSession(transport.SessionConfig{
		Timeout:      cfg.HTTPClientTimeout,
		MaxIdleConns: cfg.HTTPMaxIdleConns,
	})
	return dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{Session: session, Snapshot: snap}), cleanup, nil
}
