// Package service resolves logical service names to base URLs and queries them through the
// transport executor.
package service

import (
	"sort"
	"strings"
)

// ServiceRegistry maps a service name to its base URL.
type ServiceRegistry interface {
	Lookup(name string) (baseURL string, ok bool)
}

// StaticRegistry is an immutable name -> base URL snapshot. Reloads build a new one instead
// of mutating the old, so lookups never need a lock.
type StaticRegistry struct {
	services map[string]string
}

// NewStaticRegistry copies services into a new StaticRegistry. Names are trimmed; entries
// with an empty name or URL are dropped.
func NewStaticRegistry(services map[string]string) *StaticRegistry {
	m := make(map[string]string, len(services))
	for name, baseURL := range services {
		name = strings.TrimSpace(name)
		baseURL = strings.TrimSpace(baseURL)
		if name == "" || baseURL == "" {
			continue
		}
		m[name] = baseURL
	}
	return &StaticRegistry{services: m}
}

// Lookup returns the base URL registered for name.
func (r *StaticRegistry) Lookup(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	u, ok := r.services[name]
	return u, ok
}

// Names returns the registered service names, sorted.
func (r *StaticRegistry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.services))
	for n := range r.services {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered services.
func (r *StaticRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.services)
}
