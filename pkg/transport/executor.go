package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

const logPrefix = "transport:executor"

// ExecutorConfig configures an Executor. The zero value retries back to back.
type ExecutorConfig struct {
	// Backoff is a fixed pause between attempts. Zero disables it.
	Backoff time.Duration
}

// Executor issues requests and applies the transient-failure policy. It holds no per-call
// state and is safe for concurrent use.
type Executor struct {
	backoff time.Duration
}

// NewExecutor creates a new Executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	backoff := cfg.Backoff
	if backoff < 0 {
		backoff = 0
	}
	return &Executor{backoff: backoff}
}

// Execute performs the request described by spec through session.
//
// A 2xx response yields OutcomeOK with the body text, even when empty. A 503 response or a
// dropped connection is retried while the budget lasts; once it is spent the result is
// OutcomeExhausted and the error is nil. Any other status yields OutcomeRejected without a
// retry. Errors are returned only for structural failures (*Error) and cancellation.
func (e *Executor) Execute(ctx context.Context, session HTTPDoer, spec RequestSpec) (Result, error) {
	method := strings.ToUpper(strings.TrimSpace(spec.Method))
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodGet && method != http.MethodPost {
		return Result{}, &Error{Kind: KindRequest, Method: method, URL: spec.URL, Err: errors.New("unsupported method")}
	}
	if spec.URL == "" {
		return Result{}, &Error{Kind: KindRequest, Method: method, Err: errors.New("empty url")}
	}
	if session == nil {
		return Result{}, &Error{Kind: KindRequest, Method: method, URL: spec.URL, Err: errors.New("nil session")}
	}

	budget := spec.RetryBudget
	if budget < 0 {
		budget = 0
	}

	var res Result
	for {
		res.Attempts++
		status, body, err := e.attempt(ctx, session, method, spec)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, fmt.Errorf("%s - %s %s aborted: %w", logPrefix, method, spec.URL, ctxErr)
			}
			var te *Error
			if errors.As(err, &te) {
				return res, te
			}
			if isConnectFailure(err) {
				return res, &Error{Kind: KindConnect, Method: method, URL: spec.URL, Err: err}
			}
			if !isDisconnect(err) {
				return res, &Error{Kind: KindTransport, Method: method, URL: spec.URL, Err: err}
			}
			res.StatusCode = 0
			slog.Debug(fmt.Sprintf("%s - %s %s disconnected (attempt %d, budget %d): %v", logPrefix, method, spec.URL, res.Attempts, budget, err))
		} else {
			res.StatusCode = status
			switch {
			case status >= 200 && status < 300:
				res.Outcome = OutcomeOK
				res.Body = body
				return res, nil
			case status == http.StatusServiceUnavailable:
				slog.Debug(fmt.Sprintf("%s - %s %s unavailable (attempt %d, budget %d)", logPrefix, method, spec.URL, res.Attempts, budget))
			default:
				slog.Warn(fmt.Sprintf("%s - %s %s rejected with status %d", logPrefix, method, spec.URL, status))
				res.Outcome = OutcomeRejected
				return res, nil
			}
		}

		if budget == 0 {
			slog.Warn(fmt.Sprintf("%s - %s %s gave up after %d attempts", logPrefix, method, spec.URL, res.Attempts))
			res.Outcome = OutcomeExhausted
			return res, nil
		}
		budget--

		if err := e.wait(ctx); err != nil {
			return res, fmt.Errorf("%s - %s %s aborted: %w", logPrefix, method, spec.URL, err)
		}
	}
}

// attempt sends one request and reads the whole body.
func (e *Executor) attempt(ctx context.Context, session HTTPDoer, method string, spec RequestSpec) (int, string, error) {
	var body io.Reader = http.NoBody
	if method == http.MethodPost && len(spec.Body) > 0 {
		body = bytes.NewReader(spec.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, spec.URL, body)
	if err != nil {
		return 0, "", &Error{Kind: KindRequest, Method: method, URL: spec.URL, Err: err}
	}

	resp, err := session.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(data), nil
}

func (e *Executor) wait(ctx context.Context) error {
	if e.backoff <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(e.backoff)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isConnectFailure reports failures that happen before a connection exists.
func isConnectFailure(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

// isDisconnect reports a connection the server dropped while the request was in flight.
func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, net.ErrClosed)
}
