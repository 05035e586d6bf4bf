package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/morezero/attribute-converter/pkg/converter"
	"github.com/morezero/attribute-converter/pkg/dispatcher"
	"github.com/morezero/attribute-converter/pkg/semver"
	"github.com/morezero/attribute-converter/pkg/service"
)

const httpLogPrefix = "server:http"

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/convert", s.handleConvert())
	mux.HandleFunc("/conversions", s.handleConversions())
	mux.HandleFunc("/services", s.handleServices())
	mux.HandleFunc("/health", s.handleHealth())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	return mux
}

// handleConvert serves GET /convert?source=&target=&data=[&ver=] and
// GET /convert?conversion=source:target[@range]&data=. The body is the NATS response envelope.
func (s *Server) handleConvert() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		input := converter.ConvertInput{
			Source:  q.Get("source"),
			Target:  q.Get("target"),
			Data:    q.Get("data"),
			Version: q.Get("ver"),
		}
		if ref := q.Get("conversion"); ref != "" {
			parsed, err := semver.ParseConversionRef(ref)
			if err != nil {
				writeEnvelope(w, &dispatcher.ConverterResponse{Error: &dispatcher.ErrorDetail{Code: dispatcher.CodeInvalidArgument, Message: err.Error()}})
				return
			}
			input.Source, input.Target = parsed.Source, parsed.Target
			if parsed.Range != "" {
				input.Version = parsed.Range
			}
		}
		if err := dispatcher.ValidateConvertInput(input); err != nil {
			writeEnvelope(w, &dispatcher.ConverterResponse{Error: &dispatcher.ErrorDetail{Code: dispatcher.CodeInvalidArgument, Message: err.Error()}})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		defer cancel()
		result, err := s.disp.Convert(ctx, input)
		if err != nil {
			writeEnvelope(w, dispatcher.ErrorToResponse("", err))
			return
		}
		writeEnvelope(w, &dispatcher.ConverterResponse{Ok: true, Result: result})
	}
}

func (s *Server) handleConversions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		input := dispatcher.ListConversionsInput{
			Source:  q.Get("source"),
			Target:  q.Get("target"),
			Version: q.Get("ver"),
		}
		if err := semver.ValidateRange(input.Version); err != nil {
			writeEnvelope(w, &dispatcher.ConverterResponse{Error: &dispatcher.ErrorDetail{Code: dispatcher.CodeInvalidArgument, Message: err.Error()}})
			return
		}
		writeJSON(w, http.StatusOK, s.disp.ListConversions(input))
	}
}

func (s *Server) handleServices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.disp.ListServices())
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := s.disp.Health()
		status := http.StatusOK
		if h.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, h)
	}
}

// statusForCode maps envelope error codes onto HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case dispatcher.CodeInvalidArgument:
		return http.StatusBadRequest
	case converter.CodeConversionNotSupported:
		return http.StatusNotFound
	case converter.CodeDataNotRetrieved:
		return http.StatusBadGateway
	case service.CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case converter.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeEnvelope(w http.ResponseWriter, resp *dispatcher.ConverterResponse) {
	status := http.StatusOK
	if !resp.Ok && resp.Error != nil {
		status = statusForCode(resp.Error.Code)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - json encode: %v", httpLogPrefix, err))
	}
}

// homePageTemplate is the HTML for the converter home page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Attribute Converter</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-degraded { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
  </style>
</head>
<body>
  <h1>Attribute Converter</h1>
  <p class="meta">Loaded from {{.Health.Origin}} at {{.Health.LoadedAt}}.</p>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <p>Conversions: <span class="stat">{{.Health.Conversions}}</span>, services: <span class="stat">{{.Health.Services}}</span></p>
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Services</h2>
    {{if not .Services}}
    <p>No services configured.</p>
    {{else}}
    <table>
      <thead><tr><th>Name</th><th>Base URL</th><th>Description</th></tr></thead>
      <tbody>
        {{range .Services}}
        <tr><td>{{.Name}}</td><td>{{.BaseURL}}</td><td>{{.Description}}</td></tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>

  <section>
    <h2>Conversions</h2>
    {{if not .Conversions}}
    <p>No conversions registered.</p>
    {{else}}
    <table>
      <thead><tr><th>Source</th><th>Target</th><th>Version</th><th>Status</th><th>Description</th></tr></thead>
      <tbody>
        {{range .Conversions}}
        <tr>
          <td>{{.Source}}</td>
          <td><a href="/conversions?source={{.Source}}&amp;target={{.Target}}">{{.Target}}</a></td>
          <td>{{.Version}}</td>
          <td>{{.Status}}</td>
          <td>{{.Description}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>
</body>
</html>
`

// homeData is the data passed to the home page template.
type homeData struct {
	Health      *dispatcher.HealthOutput
	Services    []dispatcher.ServiceInfo
	Conversions []converter.ConversionInfo
}

// handleHome returns an HTTP handler for the converter home page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		data := homeData{
			Health:      s.disp.Health(),
			Services:    s.disp.ListServices().Services,
			Conversions: s.disp.ListConversions(dispatcher.ListConversionsInput{}).Conversions,
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", httpLogPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
