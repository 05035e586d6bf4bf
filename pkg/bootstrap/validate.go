package bootstrap

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/morezero/attribute-converter/pkg/semver"
)

const validateLogPrefix = "bootstrap:validate"

// ValidationError lists every problem found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s - invalid converter config: %s", validateLogPrefix, strings.Join(e.Problems, "; "))
}

// Validate checks a document before it is turned into capabilities. It returns a
// *ValidationError describing all problems, or nil.
func Validate(cfg *Config) error {
	if cfg == nil {
		return &ValidationError{Problems: []string{"config is nil"}}
	}
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	names := make([]string, 0, len(cfg.Services))
	for name := range cfg.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		svc := cfg.Services[name]
		if strings.TrimSpace(name) == "" {
			add("service with empty name")
			continue
		}
		u, err := url.Parse(svc.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("service %s: baseUrl %q must be an absolute http(s) URL", name, svc.BaseURL)
		}
	}

	seen := make(map[string]int, len(cfg.Conversions))
	direct := make(map[[2]string]bool, len(cfg.Conversions))
	for i := range cfg.Conversions {
		c := &cfg.Conversions[i]
		if !c.IsChain() {
			direct[[2]string{c.Source, c.Target}] = true
		}
	}

	for i := range cfg.Conversions {
		c := &cfg.Conversions[i]
		label := fmt.Sprintf("conversion #%d (%s:%s)", i, c.Source, c.Target)

		if !semver.ValidateAttributeName(c.Source) || !semver.ValidateAttributeName(c.Target) {
			add("%s: invalid attribute name", label)
		}
		if c.Source == c.Target {
			add("%s: source and target are the same", label)
		}
		if _, err := semver.ParseVersion(c.EffectiveVersion()); err != nil {
			add("%s: invalid version %q", label, c.Version)
		}
		switch c.Status {
		case "", semver.StatusActive, semver.StatusDeprecated, semver.StatusDisabled:
		default:
			add("%s: unknown status %q", label, c.Status)
		}

		key := conversionKey(c)
		if prev, dup := seen[key]; dup {
			add("%s: duplicates conversion #%d", label, prev)
		} else {
			seen[key] = i
		}

		if c.IsChain() {
			if c.Service != "" {
				add("%s: a chained conversion cannot also name a service", label)
			}
			for _, via := range c.Via {
				if !semver.ValidateAttributeName(via) {
					add("%s: invalid via attribute %q", label, via)
				}
			}
			for _, hop := range c.Hops() {
				if !direct[hop] {
					add("%s: hop %s:%s is not a declared service conversion", label, hop[0], hop[1])
				}
			}
			continue
		}

		if c.Service == "" {
			add("%s: service is required", label)
		} else if _, ok := cfg.Services[c.Service]; !ok {
			add("%s: unknown service %q", label, c.Service)
		}
		switch c.EffectiveMethod() {
		case MethodGet:
			if c.Body != "" {
				add("%s: body is only sent with POST", label)
			}
		case MethodPost:
		default:
			add("%s: unsupported method %q", label, c.Method)
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
