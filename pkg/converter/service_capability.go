package converter

import (
	"context"
	"net/url"
	"strings"

	"github.com/morezero/attribute-converter/pkg/service"
	"github.com/morezero/attribute-converter/pkg/transport"
)

// Template placeholders understood by ServiceCapability.
const (
	PlaceholderData     = "{data}"
	PlaceholderDataPath = "{data_path}"
)

// Querier is the part of service.Router a ServiceCapability needs.
type Querier interface {
	Query(ctx context.Context, session transport.HTTPDoer, serviceName, args string, opts ...service.QueryOption) (string, error)
}

// ServiceCapability converts by querying a named service.
//
// Args is appended to the service base URL after substituting {data} (query-escaped)
// and {data_path} (path-escaped). When Post is set, Body is sent with {data} substituted
// raw.
type ServiceCapability struct {
	Router  Querier
	Service string
	Args    string
	Post    bool
	Body    string
}

// Convert implements Capability.
func (c *ServiceCapability) Convert(ctx context.Context, data string, session transport.HTTPDoer) (string, error) {
	args := RenderArgs(c.Args, data)
	if !c.Post {
		return c.Router.Query(ctx, session, c.Service, args)
	}
	return c.Router.Query(ctx, session, c.Service, args, service.WithPost([]byte(RenderBody(c.Body, data))))
}

// RenderArgs fills an args template.
func RenderArgs(template, data string) string {
	return strings.NewReplacer(
		PlaceholderDataPath, url.PathEscape(data),
		PlaceholderData, url.QueryEscape(data),
	).Replace(template)
}

// RenderBody fills a POST body template.
func RenderBody(template, data string) string {
	return strings.NewReplacer(
		PlaceholderDataPath, url.PathEscape(data),
		PlaceholderData, data,
	).Replace(template)
}

// ChainCapability feeds each step's output into the next. A step that yields no value
// stops the chain with an empty result.
type ChainCapability struct {
	Steps []Capability
}

// Convert implements Capability.
func (c *ChainCapability) Convert(ctx context.Context, data string, session transport.HTTPDoer) (string, error) {
	current := data
	for _, step := range c.Steps {
		out, err := step.Convert(ctx, current, session)
		if err != nil {
			return "", err
		}
		if out == "" {
			return "", nil
		}
		current = strings.TrimSpace(out)
	}
	return current, nil
}
