package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/morezero/attribute-converter/pkg/transport"
)

const (
	logPrefix          = "service:router"
	defaultRetryBudget = 10
)

// Router resolves service names and queries the services through an executor.
type Router struct {
	services    ServiceRegistry
	executor    *transport.Executor
	retryBudget int
}

// NewRouterParams holds parameters for NewRouter.
type NewRouterParams struct {
	Services ServiceRegistry
	Executor *transport.Executor
	// RetryBudget applies to queries that do not set their own. Zero means the default
	// of 10; a negative value disables retries.
	RetryBudget int
}

// NewRouter creates a new Router.
func NewRouter(params NewRouterParams) *Router {
	exec := params.Executor
	if exec == nil {
		exec = transport.NewExecutor(transport.ExecutorConfig{})
	}
	budget := params.RetryBudget
	switch {
	case budget == 0:
		budget = defaultRetryBudget
	case budget < 0:
		budget = 0
	}
	return &Router{
		services:    params.Services,
		executor:    exec,
		retryBudget: budget,
	}
}

type queryOptions struct {
	method      string
	body        []byte
	retryBudget *int
}

// QueryOption customizes a single Query call.
type QueryOption func(*queryOptions)

// WithPost sends the query as a POST carrying body.
func WithPost(body []byte) QueryOption {
	return func(o *queryOptions) {
		o.method = http.MethodPost
		o.body = body
	}
}

// WithRetryBudget overrides the router's retry budget for one query.
func WithRetryBudget(n int) QueryOption {
	return func(o *queryOptions) {
		o.retryBudget = &n
	}
}

// Query sends args to the named service and returns the response text. The URL is the
// service base URL with args appended verbatim, so args must already be encoded.
//
// An empty string with a nil error means the service gave no usable answer: retries ran
// out or it answered with a non-2xx status. Unreachable services yield ServiceUnavailable,
// requests that cannot be built yield InvalidRequest and unregistered names yield
// UnknownService. Errors from ctx itself are returned unchanged.
func (r *Router) Query(ctx context.Context, session transport.HTTPDoer, serviceName, args string, opts ...QueryOption) (string, error) {
	o := queryOptions{method: http.MethodGet}
	for _, opt := range opts {
		opt(&o)
	}

	if r.services == nil {
		return "", UnknownService(serviceName)
	}
	baseURL, ok := r.services.Lookup(serviceName)
	if !ok {
		return "", UnknownService(serviceName)
	}

	budget := r.retryBudget
	if o.retryBudget != nil {
		budget = *o.retryBudget
	}

	spec := transport.RequestSpec{
		URL:         baseURL + args,
		Method:      o.method,
		Body:        o.body,
		RetryBudget: budget,
	}
	slog.Debug(fmt.Sprintf("%s - %s %s service=%s budget=%d", logPrefix, spec.Method, spec.URL, serviceName, budget))

	res, err := r.executor.Execute(ctx, session, spec)
	if err != nil {
		// Only the caller's own cancellation passes through. A session timeout also
		// matches context.DeadlineExceeded but is the service failing to answer.
		if ctx.Err() != nil {
			return "", err
		}
		cause := err
		var te *transport.Error
		if errors.As(err, &te) {
			cause = te.Err
			if te.Kind == transport.KindRequest {
				slog.Warn(fmt.Sprintf("%s - invalid request to service %s: %v", logPrefix, serviceName, err))
				return "", InvalidRequest(serviceName, cause)
			}
		}
		slog.Warn(fmt.Sprintf("%s - service %s unreachable: %v", logPrefix, serviceName, err))
		return "", ServiceUnavailable(serviceName, cause)
	}

	if res.Outcome != transport.OutcomeOK {
		slog.Debug(fmt.Sprintf("%s - service %s produced no result (%s after %d attempts)", logPrefix, serviceName, res.Outcome, res.Attempts))
	}
	return res.Text(), nil
}
