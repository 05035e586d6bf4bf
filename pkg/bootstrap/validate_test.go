package bootstrap

import (
	"errors"
	"strings"
	"testing"
)

const validateTestPrefix = "bootstrap:validate_test"

func validConfig() *Config {
	return &Config{
		Name: "test",
		Services: map[string]Service{
			"temperature": {BaseURL: "https://temp.example.test/convert"},
		},
		Conversions: []Conversion{
			{Source: "celsius", Target: "kelvin", Service: "temperature", Args: "?c={data}"},
			{Source: "kelvin", Target: "fahrenheit", Service: "temperature", Method: "POST", Body: "k={data}"},
			{Source: "celsius", Target: "fahrenheit", Via: []string{"kelvin"}},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "lowercase method", mutate: func(c *Config) { c.Conversions[1].Method = "post" }},
		{name: "relative base url", mutate: func(c *Config) {
			c.Services["temperature"] = Service{BaseURL: "/convert"}
		}, wantErr: "absolute http(s) URL"},
		{name: "unknown service", mutate: func(c *Config) { c.Conversions[0].Service = "nope" }, wantErr: `unknown service "nope"`},
		{name: "missing service", mutate: func(c *Config) { c.Conversions[0].Service = "" }, wantErr: "service is required"},
		{name: "bad method", mutate: func(c *Config) { c.Conversions[0].Method = "DELETE" }, wantErr: "unsupported method"},
		{name: "body on GET", mutate: func(c *Config) { c.Conversions[0].Body = "x" }, wantErr: "body is only sent with POST"},
		{name: "bad version", mutate: func(c *Config) { c.Conversions[0].Version = "one" }, wantErr: "invalid version"},
		{name: "bad status", mutate: func(c *Config) { c.Conversions[0].Status = "retired" }, wantErr: "unknown status"},
		{name: "self conversion", mutate: func(c *Config) { c.Conversions[0].Target = "celsius" }, wantErr: "source and target are the same"},
		{name: "invalid attribute", mutate: func(c *Config) { c.Conversions[0].Source = "9lives" }, wantErr: "invalid attribute name"},
		{name: "duplicate", mutate: func(c *Config) {
			c.Conversions = append(c.Conversions, Conversion{Source: "celsius", Target: "kelvin", Service: "temperature", Version: "1.0.0"})
		}, wantErr: "duplicates conversion #0"},
		{name: "distinct versions allowed", mutate: func(c *Config) {
			c.Conversions = append(c.Conversions, Conversion{Source: "celsius", Target: "kelvin", Service: "temperature", Version: "2.0.0"})
		}},
		{name: "unknown hop", mutate: func(c *Config) { c.Conversions[2].Via = []string{"rankine"} }, wantErr: "hop celsius:rankine is not a declared service conversion"},
		{name: "chain with service", mutate: func(c *Config) { c.Conversions[2].Service = "temperature" }, wantErr: "cannot also name a service"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("%s - unexpected error: %v", validateTestPrefix, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("%s - expected error containing %q", validateTestPrefix, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("%s - error %q does not contain %q", validateTestPrefix, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Conversions[0].Service = "nope"
	cfg.Conversions[1].Method = "PUT"

	var verr *ValidationError
	if err := Validate(cfg); !errors.As(err, &verr) {
		t.Fatalf("%s - expected *ValidationError, got %v", validateTestPrefix, err)
	}
	if len(verr.Problems) != 2 {
		t.Errorf("%s - problems = %v, want 2 entries", validateTestPrefix, verr.Problems)
	}
}

func TestValidate_Nil(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Errorf("%s - expected error for nil config", validateTestPrefix)
	}
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("%s - default config must validate: %v", validateTestPrefix, err)
	}
}
