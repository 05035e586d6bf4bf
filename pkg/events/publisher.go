package events

import "context"

// EventPublisher publishes conversion events.
type EventPublisher interface {
	PublishConverted(ctx context.Context, event *ConversionEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (for in-process usage without events).
type NoOpPublisher struct{}

// PublishConverted is a no-op.
func (p *NoOpPublisher) PublishConverted(_ context.Context, _ *ConversionEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *ConversionEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *ConversionEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishConverted calls the callback.
func (p *CallbackPublisher) PublishConverted(ctx context.Context, event *ConversionEvent) error {
	return p.callback(ctx, event)
}
