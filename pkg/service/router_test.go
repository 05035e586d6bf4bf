package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/morezero/attribute-converter/pkg/transport"
	"github.com/morezero/attribute-converter/pkg/transport/transporttest"
)

const routerTestPrefix = "service:router_test"

func newTestRouter(services map[string]string) *Router {
	return NewRouter(NewRouterParams{Services: NewStaticRegistry(services)})
}

func TestQuery_ConcatenatesBaseURLAndArgs(t *testing.T) {
	doer := transporttest.NewFakeDoer(t, transporttest.Respond(http.StatusOK, "32"))
	r := newTestRouter(map[string]string{"temperature": "https://temp.example.test/api/convert"})

	got, err := r.Query(context.Background(), doer, "temperature", "?from=c&to=f&value=0")
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", routerTestPrefix, err)
	}
	if got != "32" {
		t.Errorf("%s - Query() = %q, want 32", routerTestPrefix, got)
	}
	reqs := doer.Requests()
	if len(reqs) != 1 {
		t.Fatalf("%s - requests = %d, want 1", routerTestPrefix, len(reqs))
	}
	want := "https://temp.example.test/api/convert?from=c&to=f&value=0"
	if reqs[0].URL.String() != want {
		t.Errorf("%s - url = %q, want %q", routerTestPrefix, reqs[0].URL.String(), want)
	}
}

func TestQuery_UnknownService(t *testing.T) {
	doer := transporttest.NewFakeDoer(t)
	r := newTestRouter(map[string]string{"known": "http://known"})

	_, err := r.Query(context.Background(), doer, "missing", "/x")
	if !errors.Is(err, ErrUnknownService) {
		t.Fatalf("%s - expected ErrUnknownService, got %v", routerTestPrefix, err)
	}
	var se *Error
	if !errors.As(err, &se) || se.Service != "missing" {
		t.Errorf("%s - expected *Error for service missing, got %#v", routerTestPrefix, err)
	}
	if len(doer.Requests()) != 0 {
		t.Errorf("%s - unknown services must not be queried", routerTestPrefix)
	}
}

func TestQuery_NilRegistry(t *testing.T) {
	r := NewRouter(NewRouterParams{})
	_, err := r.Query(context.Background(), transporttest.NewFakeDoer(t), "any", "")
	if !errors.Is(err, ErrUnknownService) {
		t.Fatalf("%s - expected ErrUnknownService, got %v", routerTestPrefix, err)
	}
}

func TestQuery_ConnectFailureBecomesServiceUnavailable(t *testing.T) {
	doer := transporttest.NewFakeDoer(t, transporttest.Refused())
	r := newTestRouter(map[string]string{"pubchem": "http://pubchem"})

	_, err := r.Query(context.Background(), doer, "pubchem", "/cid/2244")
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("%s - expected ErrServiceUnavailable, got %v", routerTestPrefix, err)
	}
	var te *transport.Error
	if errors.As(err, &te) {
		t.Errorf("%s - transport error type leaked through the router", routerTestPrefix)
	}
	var se *Error
	if errors.As(err, &se) && se.Service != "pubchem" {
		t.Errorf("%s - Service = %q, want pubchem", routerTestPrefix, se.Service)
	}
}

func TestQuery_RealRefusedConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	r := newTestRouter(map[string]string{"gone": base})
	_, err := r.Query(context.Background(), http.DefaultClient, "gone", "/")
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("%s - expected ErrServiceUnavailable, got %v", routerTestPrefix, err)
	}
}

func TestQuery_SessionTimeoutBecomesServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	session := &http.Client{Timeout: 50 * time.Millisecond}
	r := newTestRouter(map[string]string{"slow": srv.URL})

	_, err := r.Query(context.Background(), session, "slow", "/x")
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("%s - expected ErrServiceUnavailable, got %v (%T)", routerTestPrefix, err, err)
	}
	var te *transport.Error
	if errors.As(err, &te) {
		t.Errorf("%s - transport error type leaked through the router", routerTestPrefix)
	}
	var se *Error
	if !errors.As(err, &se) || se.Service != "slow" {
		t.Errorf("%s - expected *Error for service slow, got %#v", routerTestPrefix, err)
	}
}

func TestQuery_CallerDeadlinePassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	r := newTestRouter(map[string]string{"slow": srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Query(ctx, srv.Client(), "slow", "/x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("%s - expected context.DeadlineExceeded, got %v", routerTestPrefix, err)
	}
	if errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("%s - the caller's deadline must not be reported as unavailability", routerTestPrefix)
	}
}

func TestQuery_UnbuildableRequestIsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		session transport.HTTPDoer
	}{
		{name: "malformed url", baseURL: "http://bad host", session: transporttest.NewFakeDoer(t)},
		{name: "nil session", baseURL: "http://svc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(map[string]string{"svc": tt.baseURL})
			_, err := r.Query(context.Background(), tt.session, "svc", "/x")
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("%s - expected ErrInvalidRequest, got %v", routerTestPrefix, err)
			}
			if errors.Is(err, ErrServiceUnavailable) {
				t.Errorf("%s - an unbuildable request is not unavailability", routerTestPrefix)
			}
			var te *transport.Error
			if errors.As(err, &te) {
				t.Errorf("%s - transport error type leaked through the router", routerTestPrefix)
			}
		})
	}
}

func TestQuery_DefaultRetryBudgetIsTen(t *testing.T) {
	doer := transporttest.NewHandlerDoer(t, func(*http.Request) (*http.Response, error) {
		return transporttest.NewStringResponse(http.StatusServiceUnavailable, ""), nil
	})
	r := newTestRouter(map[string]string{"busy": "http://busy"})

	got, err := r.Query(context.Background(), doer, "busy", "")
	if err != nil {
		t.Fatalf("%s - exhaustion must not be an error, got %v", routerTestPrefix, err)
	}
	if got != "" {
		t.Errorf("%s - Query() = %q, want empty", routerTestPrefix, got)
	}
	if n := len(doer.Requests()); n != 11 {
		t.Errorf("%s - requests = %d, want 11 (1 + default budget)", routerTestPrefix, n)
	}
}

func TestQuery_WithRetryBudgetOverride(t *testing.T) {
	doer := transporttest.NewHandlerDoer(t, func(*http.Request) (*http.Response, error) {
		return transporttest.NewStringResponse(http.StatusServiceUnavailable, ""), nil
	})
	r := NewRouter(NewRouterParams{Services: NewStaticRegistry(map[string]string{"busy": "http://busy"}), RetryBudget: 4})

	if _, err := r.Query(context.Background(), doer, "busy", ""); err != nil {
		t.Fatalf("%s - unexpected error: %v", routerTestPrefix, err)
	}
	if n := len(doer.Requests()); n != 5 {
		t.Errorf("%s - requests = %d, want 5 with router budget 4", routerTestPrefix, n)
	}

	if _, err := r.Query(context.Background(), doer, "busy", "", WithRetryBudget(0)); err != nil {
		t.Fatalf("%s - unexpected error: %v", routerTestPrefix, err)
	}
	if n := len(doer.Requests()); n != 6 {
		t.Errorf("%s - requests = %d, want 6 after a zero-budget query", routerTestPrefix, n)
	}
}

func TestQuery_NegativeRouterBudgetDisablesRetries(t *testing.T) {
	doer := transporttest.NewHandlerDoer(t, func(*http.Request) (*http.Response, error) {
		return transporttest.NewStringResponse(http.StatusServiceUnavailable, ""), nil
	})
	r := NewRouter(NewRouterParams{Services: NewStaticRegistry(map[string]string{"busy": "http://busy"}), RetryBudget: -1})

	if _, err := r.Query(context.Background(), doer, "busy", ""); err != nil {
		t.Fatalf("%s - unexpected error: %v", routerTestPrefix, err)
	}
	if n := len(doer.Requests()); n != 1 {
		t.Errorf("%s - requests = %d, want 1 without retries", routerTestPrefix, n)
	}
}

func TestQuery_Post(t *testing.T) {
	var body string
	doer := transporttest.NewHandlerDoer(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost {
			t.Errorf("%s - method = %s, want POST", routerTestPrefix, req.Method)
		}
		data, _ := io.ReadAll(req.Body)
		body = string(data)
		return transporttest.NewStringResponse(http.StatusOK, "InChIKey"), nil
	})
	r := newTestRouter(map[string]string{"inchi": "http://inchi"})

	got, err := r.Query(context.Background(), doer, "inchi", "/key", WithPost([]byte("InChI=1S/CH4/h1H4")))
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", routerTestPrefix, err)
	}
	if got != "InChIKey" || body != "InChI=1S/CH4/h1H4" {
		t.Errorf("%s - got (%q, body %q)", routerTestPrefix, got, body)
	}
}

func TestQuery_RejectedStatusIsEmptyNotError(t *testing.T) {
	doer := transporttest.NewFakeDoer(t, transporttest.Respond(http.StatusNotFound, "no such compound"))
	r := newTestRouter(map[string]string{"pubchem": "http://pubchem"})

	got, err := r.Query(context.Background(), doer, "pubchem", "/cid/0")
	if err != nil {
		t.Fatalf("%s - 404 must not be an error, got %v", routerTestPrefix, err)
	}
	if got != "" {
		t.Errorf("%s - Query() = %q, want empty", routerTestPrefix, got)
	}
}

func TestQuery_CancelledContextPassesThrough(t *testing.T) {
	doer := transporttest.NewHandlerDoer(t, func(req *http.Request) (*http.Response, error) {
		return nil, req.Context().Err()
	})
	r := newTestRouter(map[string]string{"svc": "http://svc"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Query(ctx, doer, "svc", "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("%s - expected context.Canceled, got %v", routerTestPrefix, err)
	}
	if errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("%s - cancellation must not be reported as unavailability", routerTestPrefix)
	}
}

func TestStaticRegistry(t *testing.T) {
	reg := NewStaticRegistry(map[string]string{
		" opsin ": " https://opsin.example.test/opsin/ ",
		"empty":   "",
		"":        "http://nameless",
		"cactus":  "https://cactus.example.test/chemical/structure/",
	})

	if reg.Len() != 2 {
		t.Fatalf("%s - Len() = %d, want 2", routerTestPrefix, reg.Len())
	}
	if u, ok := reg.Lookup("opsin"); !ok || u != "https://opsin.example.test/opsin/" {
		t.Errorf("%s - Lookup(opsin) = (%q, %v)", routerTestPrefix, u, ok)
	}
	if _, ok := reg.Lookup("empty"); ok {
		t.Errorf("%s - entries with empty URL must be dropped", routerTestPrefix)
	}
	names := reg.Names()
	if len(names) != 2 || names[0] != "cactus" || names[1] != "opsin" {
		t.Errorf("%s - Names() = %v, want [cactus opsin]", routerTestPrefix, names)
	}

	var nilReg *StaticRegistry
	if _, ok := nilReg.Lookup("x"); ok || nilReg.Len() != 0 || nilReg.Names() != nil {
		t.Errorf("%s - nil registry must behave as empty", routerTestPrefix)
	}
}

func TestError_Messages(t *testing.T) {
	if got := UnknownService("x").Error(); got != "UNKNOWN_SERVICE: Service x is not registered" {
		t.Errorf("%s - UnknownService message = %q", routerTestPrefix, got)
	}
	if got := ServiceUnavailable("y", errors.New("connection refused")).Error(); got != "SERVICE_UNAVAILABLE: Service y is not available: connection refused" {
		t.Errorf("%s - ServiceUnavailable message = %q", routerTestPrefix, got)
	}
	if got := InvalidRequest("z", errors.New("nil session")).Error(); got != "INVALID_SERVICE_REQUEST: Request to service z is invalid: nil session" {
		t.Errorf("%s - InvalidRequest message = %q", routerTestPrefix, got)
	}
	if errors.Is(UnknownService("x"), ErrServiceUnavailable) {
		t.Errorf("%s - codes must not cross-match", routerTestPrefix)
	}
}
