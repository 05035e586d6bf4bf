package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/attribute-converter/pkg/commsutil"
)

const subscribeLogPrefix = "dispatcher:subscribe"

// DefaultMaxInFlight bounds concurrently handled requests when SubscribeParams leaves it unset.
const DefaultMaxInFlight = 64

// SubscribeParams holds parameters for Subscribe.
type SubscribeParams struct {
	Conn    *comms.Conn
	Subject string
	// Timeout bounds every request; zero leaves only the caller's limits.
	Timeout time.Duration
	// MaxInFlight bounds requests handled at once; zero means DefaultMaxInFlight. When the
	// limit is reached, delivery waits for a slot.
	MaxInFlight int
}

// Subscribe serves requests on params.Subject until ctx is done or the subscription is
// removed. Each message is handled on its own goroutine so a slow conversion never holds
// up the others.
func (d *Dispatcher) Subscribe(ctx context.Context, params SubscribeParams) (*comms.Subscription, error) {
	if params.Conn == nil {
		return nil, fmt.Errorf("%s - nil connection", subscribeLogPrefix)
	}
	subject := params.Subject
	if subject == "" {
		subject = commsutil.SubjectConverter
	}

	limit := params.MaxInFlight
	if limit <= 0 {
		limit = DefaultMaxInFlight
	}
	sem := make(chan struct{}, limit)

	sub, err := params.Conn.Subscribe(subject, func(msg *comms.Msg) {
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			respond(msg, d.HandleMessage(ctx, msg.Data, params.Timeout))
		}()
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to %s: %w", subscribeLogPrefix, subject, err)
	}
	return sub, nil
}

// HandleMessage decodes one raw request, dispatches it, and returns the response.
func (d *Dispatcher) HandleMessage(ctx context.Context, data []byte, timeout time.Duration) *ConverterResponse {
	var req ConverterRequest
	if err := commsutil.DecodePayload(data, &req); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to decode request: %v", subscribeLogPrefix, err))
		msg := "Failed to decode request"
		if errors.Is(err, commsutil.ErrEmptyPayload) {
			msg = "Empty request"
		}
		return errorResponse("", CodeInvalidRequest, msg, false)
	}

	reqCtx, cancel := RequestContext(ctx, req.Ctx, timeout, time.Now())
	defer cancel()
	return d.Dispatch(reqCtx, &req)
}

func respond(msg *comms.Msg, resp *ConverterResponse) {
	if msg.Reply == "" {
		return
	}
	data, err := commsutil.EncodePayload(resp)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode response: %v", subscribeLogPrefix, err))
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to respond: %v", subscribeLogPrefix, err))
	}
}
