package transport

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// SessionConfig configures the pooled HTTP session created by NewHTTPSession.
type SessionConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// DefaultSessionConfig returns pool settings suited to a handful of conversion services.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// NewHTTPSession creates a shared, trace-propagating HTTP client. The caller owns it and
// should reuse it for every conversion so connections are pooled.
func NewHTTPSession(cfg SessionConfig) *http.Client {
	def := DefaultSessionConfig()
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = def.MaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = def.MaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = def.IdleConnTimeout
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.MaxIdleConns = cfg.MaxIdleConns
	base.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	base.IdleConnTimeout = cfg.IdleConnTimeout

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(base),
	}
}

var _ HTTPDoer = (*http.Client)(nil)
