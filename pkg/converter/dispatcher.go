package converter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/morezero/attribute-converter/pkg/events"
	"github.com/morezero/attribute-converter/pkg/transport"
)

const (
	logPrefix  = "converter:dispatcher"
	tracerName = "github.com/morezero/attribute-converter/pkg/converter"
)

// ConvertInput names a conversion and the value to convert.
type ConvertInput struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Data   string `json:"data"`
	// Version is a SemVer range, a major number or an exact version; empty picks the
	// latest active version.
	Version string `json:"ver,omitempty"`
}

// ConvertResult is a successful conversion.
type ConvertResult struct {
	Value      string `json:"value"`
	Conversion string `json:"conversion"`
	Version    string `json:"version"`
}

// Dispatcher resolves conversions in a CapabilitySet and invokes them.
type Dispatcher struct {
	capabilities *CapabilitySet
	publisher    events.EventPublisher
	tracer       trace.Tracer
}

// NewDispatcherParams holds parameters for NewDispatcher.
type NewDispatcherParams struct {
	Capabilities *CapabilitySet
	// Publisher receives one event per conversion; nil disables events.
	Publisher events.EventPublisher
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(params NewDispatcherParams) *Dispatcher {
	caps := params.Capabilities
	if caps == nil {
		caps = NewCapabilitySet()
	}
	pub := params.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}
	return &Dispatcher{
		capabilities: caps,
		publisher:    pub,
		tracer:       otel.Tracer(tracerName),
	}
}

// Capabilities returns the set the dispatcher resolves against.
func (d *Dispatcher) Capabilities() *CapabilitySet {
	return d.capabilities
}

// Convert converts data from the source attribute to the target attribute using the
// latest active version of the conversion.
//
// Errors: ConversionNotSupported when no capability exists for the pair,
// DataNotRetrieved when the capability produced nothing. Service and context errors
// from the capability are returned unchanged.
func (d *Dispatcher) Convert(ctx context.Context, source, target, data string, session transport.HTTPDoer) (string, error) {
	res, err := d.ConvertVersion(ctx, ConvertInput{Source: source, Target: target, Data: data}, session)
	if err != nil {
		return "", err
	}
	return res.Value, nil
}

// ConvertVersion is Convert with an optional version selector.
func (d *Dispatcher) ConvertVersion(ctx context.Context, input ConvertInput, session transport.HTTPDoer) (*ConvertResult, error) {
	pair := Pair{Source: input.Source, Target: input.Target}
	start := time.Now()

	ctx, span := d.tracer.Start(ctx, "converter.convert", trace.WithAttributes(
		attribute.String("conversion.source", pair.Source),
		attribute.String("conversion.target", pair.Target),
		attribute.String("conversion.range", input.Version),
	))
	defer span.End()

	version := ""
	res, err := func() (*ConvertResult, error) {
		entry, ok := d.capabilities.Lookup(pair, input.Version)
		if !ok {
			return nil, ConversionNotSupported(pair.Target)
		}
		version = entry.Version
		span.SetAttributes(attribute.String("conversion.version", entry.Version))

		out, err := entry.Capability.Convert(ctx, input.Data, session)
		if err != nil {
			if isTaxonomy(err) {
				return nil, err
			}
			return nil, fmt.Errorf("%s - %s failed: %w", logPrefix, pair.Name(), err)
		}
		if out == "" {
			return nil, DataNotRetrieved(pair.Target)
		}
		return &ConvertResult{Value: out, Conversion: pair.Name(), Version: entry.Version}, nil
	}()

	code := ErrorCode(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		slog.Debug(fmt.Sprintf("%s - %s failed: %v", logPrefix, pair.Name(), err))
	} else {
		span.SetStatus(codes.Ok, "")
		slog.Debug(fmt.Sprintf("%s - %s@%s converted in %s", logPrefix, pair.Name(), version, time.Since(start)))
	}

	event := events.NewConversionEvent(pair.Source, pair.Target, pair.Name(), start)
	event.Version = version
	event.Ok = err == nil
	event.Code = code
	// Events are published for cancelled requests too; publish failures are only logged.
	if pubErr := d.publisher.PublishConverted(context.WithoutCancel(ctx), event); pubErr != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish event for %s: %v", logPrefix, pair.Name(), pubErr))
	}

	return res, err
}
