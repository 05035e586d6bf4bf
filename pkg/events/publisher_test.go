package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNoOpPublisher(t *testing.T) {
	pub := &NoOpPublisher{}
	err := pub.PublishConverted(context.Background(), &ConversionEvent{Source: "smiles", Target: "inchi"})
	if err != nil {
		t.Errorf("events:publisher_test - expected no error, got %v", err)
	}
}

func TestCallbackPublisher(t *testing.T) {
	var captured *ConversionEvent

	pub := NewCallbackPublisher(func(_ context.Context, event *ConversionEvent) error {
		captured = event
		return nil
	})

	event := &ConversionEvent{Source: "celsius", Target: "fahrenheit", Conversion: "celsius_to_fahrenheit", Ok: true}
	if err := pub.PublishConverted(context.Background(), event); err != nil {
		t.Errorf("events:publisher_test - expected no error, got %v", err)
	}
	if captured == nil {
		t.Fatal("events:publisher_test - expected callback to be called")
	}
	if captured.Conversion != "celsius_to_fahrenheit" || !captured.Ok {
		t.Errorf("events:publisher_test - unexpected event %+v", captured)
	}
}

func TestNewConversionEvent(t *testing.T) {
	start := time.Now().Add(-1500 * time.Millisecond)
	event := NewConversionEvent("smiles", "inchi", "smiles_to_inchi", start)

	if _, err := uuid.Parse(event.ID); err != nil {
		t.Errorf("events:types_test - ID %q is not a uuid: %v", event.ID, err)
	}
	if event.DurationMs < 1500 {
		t.Errorf("events:types_test - DurationMs = %d, want >= 1500", event.DurationMs)
	}
	if _, err := time.Parse(time.RFC3339Nano, event.Timestamp); err != nil {
		t.Errorf("events:types_test - Timestamp %q: %v", event.Timestamp, err)
	}
	if event.Ok {
		t.Errorf("events:types_test - new events start not ok")
	}
}
