// Package bootstrap loads the converter's configuration document: the named conversion
// services and the conversions declared on top of them.
package bootstrap

import "strings"

// HTTP methods a conversion may use.
const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// DefaultConversionVersion is assigned to conversions that do not declare a version.
const DefaultConversionVersion = "1.0.0"

// Service is a named remote conversion service.
type Service struct {
	BaseURL     string `json:"baseUrl" yaml:"baseUrl" toml:"baseUrl"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
}

// Conversion declares how one source attribute is turned into a target attribute.
//
// A direct conversion queries Service with Args appended to its base URL (GET) or with
// Body as payload (POST). Both templates accept {data} and {data_path} placeholders.
// A chained conversion lists intermediate attributes in Via instead of a service; every
// hop must itself be a declared direct conversion.
type Conversion struct {
	Source      string   `json:"source" yaml:"source" toml:"source"`
	Target      string   `json:"target" yaml:"target" toml:"target"`
	Service     string   `json:"service,omitempty" yaml:"service,omitempty" toml:"service,omitempty"`
	Method      string   `json:"method,omitempty" yaml:"method,omitempty" toml:"method,omitempty"`
	Args        string   `json:"args,omitempty" yaml:"args,omitempty" toml:"args,omitempty"`
	Body        string   `json:"body,omitempty" yaml:"body,omitempty" toml:"body,omitempty"`
	Via         []string `json:"via,omitempty" yaml:"via,omitempty" toml:"via,omitempty"`
	Version     string   `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	Status      string   `json:"status,omitempty" yaml:"status,omitempty" toml:"status,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
}

// IsChain reports whether the conversion is composed from other conversions.
func (c *Conversion) IsChain() bool {
	return len(c.Via) > 0
}

// EffectiveMethod returns the upper-cased HTTP method, defaulting to GET.
func (c *Conversion) EffectiveMethod() string {
	if c.Method == "" {
		return MethodGet
	}
	return strings.ToUpper(c.Method)
}

// EffectiveVersion returns the declared version or DefaultConversionVersion.
func (c *Conversion) EffectiveVersion() string {
	if c.Version == "" {
		return DefaultConversionVersion
	}
	return c.Version
}

// Hops returns the (source, target) pairs a chained conversion walks through.
func (c *Conversion) Hops() [][2]string {
	if !c.IsChain() {
		return [][2]string{{c.Source, c.Target}}
	}
	attrs := make([]string, 0, len(c.Via)+2)
	attrs = append(attrs, c.Source)
	attrs = append(attrs, c.Via...)
	attrs = append(attrs, c.Target)
	hops := make([][2]string, 0, len(attrs)-1)
	for i := 0; i+1 < len(attrs); i++ {
		hops = append(hops, [2]string{attrs[i], attrs[i+1]})
	}
	return hops
}

// Config is the root configuration document.
type Config struct {
	Name        string             `json:"name" yaml:"name" toml:"name"`
	Version     string             `json:"version" yaml:"version" toml:"version"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Services    map[string]Service `json:"services" yaml:"services" toml:"services"`
	Conversions []Conversion       `json:"conversions" yaml:"conversions" toml:"conversions"`
}

// ServiceURLs returns the name to base URL map used to build a service registry.
func (c *Config) ServiceURLs() map[string]string {
	out := make(map[string]string, len(c.Services))
	for name, svc := range c.Services {
		out[name] = svc.BaseURL
	}
	return out
}
