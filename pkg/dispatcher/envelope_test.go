package dispatcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

const envelopeTestPrefix = "dispatcher:envelope_test"

func TestConverterRequest_Unmarshal(t *testing.T) {
	raw := `{
		"id": "req-1",
		"method": "convert",
		"params": {"source": "smiles", "target": "inchi", "data": "C", "ver": "^1"},
		"ctx": {"requestId": "r-9", "timeoutMs": 1500}
	}`

	var req ConverterRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("%s - failed to unmarshal: %v", envelopeTestPrefix, err)
	}
	if req.ID != "req-1" || req.Method != "convert" {
		t.Errorf("%s - unexpected request %+v", envelopeTestPrefix, req)
	}
	if req.Ctx == nil || req.Ctx.RequestID != "r-9" || req.Ctx.TimeoutMs != 1500 {
		t.Errorf("%s - unexpected ctx %+v", envelopeTestPrefix, req.Ctx)
	}
}

func TestRequestContext(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		invCtx  *InvocationContext
		timeout time.Duration
		want    time.Duration
		none    bool
	}{
		{name: "server timeout only", timeout: 25 * time.Second, want: 25 * time.Second},
		{name: "caller timeout shortens", invCtx: &InvocationContext{TimeoutMs: 2000}, timeout: 25 * time.Second, want: 2 * time.Second},
		{name: "caller timeout cannot extend", invCtx: &InvocationContext{TimeoutMs: 60000}, timeout: 25 * time.Second, want: 25 * time.Second},
		{name: "absolute deadline", invCtx: &InvocationContext{DeadlineMs: now.Add(3 * time.Second).UnixMilli()}, timeout: 25 * time.Second, want: 3 * time.Second},
		{name: "caller limit without server timeout", invCtx: &InvocationContext{TimeoutMs: 500}, want: 500 * time.Millisecond},
		{name: "unbounded", none: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := RequestContext(context.Background(), tt.invCtx, tt.timeout, now)
			defer cancel()
			deadline, ok := ctx.Deadline()
			if tt.none {
				if ok {
					t.Errorf("%s - expected no deadline, got %v", envelopeTestPrefix, deadline)
				}
				return
			}
			if !ok {
				t.Fatalf("%s - expected a deadline", envelopeTestPrefix)
			}
			got := time.Until(deadline)
			if got > tt.want || got < tt.want-time.Second {
				t.Errorf("%s - remaining = %v, want about %v", envelopeTestPrefix, got, tt.want)
			}
		})
	}
}

func TestRequestContext_PastDeadline(t *testing.T) {
	now := time.Now()
	ctx, cancel := RequestContext(context.Background(), &InvocationContext{DeadlineMs: now.Add(-time.Second).UnixMilli()}, 25*time.Second, now)
	defer cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("%s - a past deadline must expire immediately", envelopeTestPrefix)
	}
}
