// Package transporttest provides HTTP session doubles for tests that must not reach the network.
package transporttest

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/morezero/attribute-converter/pkg/transport"
)

// Step is one queued reply: either a response or an error.
type Step struct {
	Response *http.Response
	Err      error
}

// FakeDoer implements transport.HTTPDoer. It replies either from a queue of steps or from a
// handler func, records every request and is safe for concurrent use.
type FakeDoer struct {
	t        testing.TB
	mu       sync.Mutex
	steps    []Step
	handler  func(req *http.Request) (*http.Response, error)
	requests []*http.Request
}

// NewFakeDoer returns a FakeDoer that answers Do calls with steps, in order.
func NewFakeDoer(t testing.TB, steps ...Step) *FakeDoer {
	return &FakeDoer{
		t:     t,
		steps: append([]Step(nil), steps...),
	}
}

// NewHandlerDoer returns a FakeDoer that answers every Do call with fn.
func NewHandlerDoer(t testing.TB, fn func(req *http.Request) (*http.Response, error)) *FakeDoer {
	return &FakeDoer{t: t, handler: fn}
}

// Do records the request and returns the next queued step.
func (f *FakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	if f.handler != nil {
		fn := f.handler
		f.mu.Unlock()
		return fn(req)
	}
	if len(f.steps) == 0 {
		f.mu.Unlock()
		f.t.Errorf("fake http client has no steps left for request %s %s", req.Method, req.URL.String())
		return nil, fmt.Errorf("no steps left for %s %s", req.Method, req.URL.String())
	}
	step := f.steps[0]
	f.steps = f.steps[1:]
	f.mu.Unlock()

	if step.Err != nil {
		return nil, step.Err
	}
	if step.Response.Request == nil {
		step.Response.Request = req
	}
	return step.Response, nil
}

// Requests returns the HTTP requests captured so far.
func (f *FakeDoer) Requests() []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Request(nil), f.requests...)
}

// Remaining returns the number of queued steps not consumed yet.
func (f *FakeDoer) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.steps)
}

// NewStringResponse builds a minimal http.Response with the provided status code and body.
func NewStringResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

// Respond queues a response step.
func Respond(status int, body string) Step {
	return Step{Response: NewStringResponse(status, body)}
}

// Disconnect queues a step that fails the way net/http reports a server closing the
// connection before answering.
func Disconnect() Step {
	return Step{Err: &url.Error{Op: "Get", URL: "http://fake", Err: io.EOF}}
}

// Refused queues a step that fails the way net/http reports a refused connection.
func Refused() Step {
	return Step{Err: &url.Error{
		Op:  "Get",
		URL: "http://fake",
		Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
	}}
}

var _ transport.HTTPDoer = (*FakeDoer)(nil)
