// Package transport issues single HTTP requests against conversion services and retries
// transient failures (503 responses, dropped connections) within a bounded budget.
package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPDoer is the borrowed session every request goes through. *http.Client satisfies it.
// The executor never creates or closes a session; callers own its lifecycle and may share
// one session across any number of concurrent requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestSpec describes one logical request. It is built per call and never shared.
type RequestSpec struct {
	URL    string
	Method string // GET (default) or POST
	// Body is sent only for POST.
	Body []byte
	// RetryBudget is the number of additional attempts allowed after the first one.
	RetryBudget int
}

// Outcome classifies how a logical request ended when no error was returned.
type Outcome int

const (
	// OutcomeOK means a 2xx response was received; Result.Body holds its text, possibly empty.
	OutcomeOK Outcome = iota
	// OutcomeExhausted means every attempt hit a 503 or a dropped connection.
	OutcomeExhausted
	// OutcomeRejected means a non-2xx, non-503 status was received. It is not retried.
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeRejected:
		return "rejected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is what Execute produces when the request did not fail structurally.
type Result struct {
	Body       string
	Outcome    Outcome
	StatusCode int // last status seen; 0 when the last attempt was a dropped connection
	Attempts   int
}

// Text returns the response text for OutcomeOK and "" for every other outcome.
func (r Result) Text() string {
	if r.Outcome != OutcomeOK {
		return ""
	}
	return r.Body
}

// ErrorKind tells callers which structural failure stopped a request.
type ErrorKind int

const (
	// KindConnect is a failure to establish the connection (refused, unreachable, DNS).
	KindConnect ErrorKind = iota + 1
	// KindTransport is any other transport failure that is not a dropped connection.
	KindTransport
	// KindRequest is a request that could not be built (bad URL, unsupported method).
	KindRequest
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindTransport:
		return "transport"
	case KindRequest:
		return "request"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a structural transport failure. Transient failures never surface as Error.
type Error struct {
	Kind   ErrorKind
	Method string
	URL    string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s failure: %v", e.Method, e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConnect reports whether err is a connection-establishment failure.
func IsConnect(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindConnect
}
