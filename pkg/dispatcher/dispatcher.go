package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/attribute-converter/pkg/converter"
	"github.com/morezero/attribute-converter/pkg/semver"
	"github.com/morezero/attribute-converter/pkg/service"
	"github.com/morezero/attribute-converter/pkg/transport"
)

const logPrefix = "dispatcher:dispatch"

// Error codes produced by the envelope layer itself.
const (
	CodeMethodNotFound  = "METHOD_NOT_FOUND"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeInvalidRequest  = "INVALID_REQUEST"
)

// ServiceInfo describes one configured remote service.
type ServiceInfo struct {
	Name        string `json:"name"`
	BaseURL     string `json:"baseUrl"`
	Description string `json:"description,omitempty"`
}

// Snapshot is the immutable state requests are served from. A reload builds a new one.
type Snapshot struct {
	Converter *converter.Dispatcher
	Services  []ServiceInfo
	// Origin names where the configuration came from (file path or "postgres").
	Origin   string
	LoadedAt time.Time
}

// HealthOutput is the result of the health method.
type HealthOutput struct {
	Status      string `json:"status"`
	Conversions int    `json:"conversions"`
	Services    int    `json:"services"`
	Origin      string `json:"origin,omitempty"`
	LoadedAt    string `json:"loadedAt,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// ListConversionsInput filters listConversions.
type ListConversionsInput struct {
	Source string `json:"source,omitempty"`
	Target string `json:"target,omitempty"`
	// Version keeps only versions inside a SemVer range or major number.
	Version string `json:"ver,omitempty"`
}

// ListConversionsOutput is the result of listConversions.
type ListConversionsOutput struct {
	Conversions []converter.ConversionInfo `json:"conversions"`
}

// ListServicesOutput is the result of listServices.
type ListServicesOutput struct {
	Services []ServiceInfo `json:"services"`
}

// Dispatcher routes COMMS requests to the current converter snapshot.
type Dispatcher struct {
	session transport.HTTPDoer
	current atomic.Pointer[Snapshot]
}

// NewDispatcherParams holds parameters for NewDispatcher.
type NewDispatcherParams struct {
	// Session is shared by every conversion.
	Session  transport.HTTPDoer
	Snapshot *Snapshot
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(params NewDispatcherParams) *Dispatcher {
	d := &Dispatcher{session: params.Session}
	d.Swap(params.Snapshot)
	return d
}

// Swap installs a new snapshot. In-flight requests finish on the one they started with.
func (d *Dispatcher) Swap(s *Snapshot) {
	if s == nil {
		s = &Snapshot{}
	}
	if s.Converter == nil {
		s.Converter = converter.NewDispatcher(converter.NewDispatcherParams{})
	}
	if s.LoadedAt.IsZero() {
		s.LoadedAt = time.Now().UTC()
	}
	d.current.Store(s)
}

// Current returns the snapshot in use.
func (d *Dispatcher) Current() *Snapshot {
	return d.current.Load()
}

// Dispatch routes a request to the appropriate method and returns a response.
func (d *Dispatcher) Dispatch(ctx context.Context, req *ConverterRequest) *ConverterResponse {
	if req.ID == "" {
		if req.Ctx != nil && req.Ctx.RequestID != "" {
			req.ID = req.Ctx.RequestID
		} else {
			req.ID = uuid.NewString()
		}
	}
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s", logPrefix, req.Method, req.ID))

	switch req.Method {
	case "convert":
		return d.handleConvert(ctx, req)
	case "listConversions":
		return d.handleListConversions(req)
	case "listServices":
		return &ConverterResponse{ID: req.ID, Ok: true, Result: d.ListServices()}
	case "health":
		return &ConverterResponse{ID: req.ID, Ok: true, Result: d.Health()}
	default:
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("Unknown method: %s", req.Method), false)
	}
}

// Convert runs one conversion against the current snapshot.
func (d *Dispatcher) Convert(ctx context.Context, input converter.ConvertInput) (*converter.ConvertResult, error) {
	return d.Current().Converter.ConvertVersion(ctx, input, d.session)
}

// ListConversions lists the registered conversions, optionally filtered by attribute and
// version range.
func (d *Dispatcher) ListConversions(input ListConversionsInput) *ListConversionsOutput {
	all := d.Current().Converter.Capabilities().List()
	out := make([]converter.ConversionInfo, 0, len(all))
	for _, c := range all {
		if input.Source != "" && c.Source != input.Source {
			continue
		}
		if input.Target != "" && c.Target != input.Target {
			continue
		}
		if input.Version != "" && !semver.SatisfiesRange(c.Version, input.Version) {
			continue
		}
		out = append(out, c)
	}
	return &ListConversionsOutput{Conversions: out}
}

// ListServices lists the configured services by name.
func (d *Dispatcher) ListServices() *ListServicesOutput {
	services := append([]ServiceInfo(nil), d.Current().Services...)
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	if services == nil {
		services = []ServiceInfo{}
	}
	return &ListServicesOutput{Services: services}
}

// Health reports whether any conversion is available.
func (d *Dispatcher) Health() *HealthOutput {
	snap := d.Current()
	n := snap.Converter.Capabilities().Len()
	status := "healthy"
	if n == 0 {
		status = "degraded"
	}
	return &HealthOutput{
		Status:      status,
		Conversions: n,
		Services:    len(snap.Services),
		Origin:      snap.Origin,
		LoadedAt:    snap.LoadedAt.Format(time.RFC3339),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

func (d *Dispatcher) handleConvert(ctx context.Context, req *ConverterRequest) *ConverterResponse {
	var input converter.ConvertInput
	if err := decodeParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, "Failed to parse convert params", false)
	}
	if err := ValidateConvertInput(input); err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, err.Error(), false)
	}

	result, err := d.Convert(ctx, input)
	if err != nil {
		return ErrorToResponse(req.ID, err)
	}
	return &ConverterResponse{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) handleListConversions(req *ConverterRequest) *ConverterResponse {
	var input ListConversionsInput
	if err := decodeParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, "Failed to parse listConversions params", false)
	}
	if err := semver.ValidateRange(input.Version); err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, fmt.Sprintf("invalid version range %q", input.Version), false)
	}
	return &ConverterResponse{ID: req.ID, Ok: true, Result: d.ListConversions(input)}
}

// ValidateConvertInput checks attribute names and the version selector.
func ValidateConvertInput(input converter.ConvertInput) error {
	if !semver.ValidateAttributeName(input.Source) {
		return fmt.Errorf("invalid source attribute %q", input.Source)
	}
	if !semver.ValidateAttributeName(input.Target) {
		return fmt.Errorf("invalid target attribute %q", input.Target)
	}
	if err := semver.ValidateRange(input.Version); err != nil {
		return fmt.Errorf("invalid version range %q", input.Version)
	}
	return nil
}

// --- helpers ---

// decodeParams accepts missing params as an empty object.
func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func errorResponse(id, code, message string, retryable bool) *ConverterResponse {
	return &ConverterResponse{
		ID: id,
		Ok: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}

// ErrorToResponse maps a conversion error to a failed response envelope.
func ErrorToResponse(id string, err error) *ConverterResponse {
	resp := errorResponse(id, converter.ErrorCode(err), err.Error(), converter.IsRetryable(err))

	var ce *converter.ConversionError
	var se *service.Error
	switch {
	case errors.As(err, &ce):
		resp.Error.Message = ce.Message
		resp.Error.Details = map[string]string{"target": ce.Target}
	case errors.As(err, &se):
		resp.Error.Message = se.Message
		resp.Error.Details = map[string]string{"service": se.Service}
	default:
		slog.Warn(fmt.Sprintf("%s - request %s failed: %v", logPrefix, id, err))
	}
	return resp
}
