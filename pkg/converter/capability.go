// Package converter turns a named source attribute into a named target attribute by
// dispatching to the conversion capability registered for the pair.
package converter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	masterminds "github.com/Masterminds/semver/v3"

	"github.com/morezero/attribute-converter/pkg/semver"
	"github.com/morezero/attribute-converter/pkg/transport"
)

const capabilityLogPrefix = "converter:capability"

// Capability converts one attribute value. An empty result with a nil error means no
// value could be obtained.
type Capability interface {
	Convert(ctx context.Context, data string, session transport.HTTPDoer) (string, error)
}

// CapabilityFunc adapts a function to Capability.
type CapabilityFunc func(ctx context.Context, data string, session transport.HTTPDoer) (string, error)

// Convert calls f.
func (f CapabilityFunc) Convert(ctx context.Context, data string, session transport.HTTPDoer) (string, error) {
	return f(ctx, data, session)
}

// Pair identifies a conversion by its source and target attribute names.
type Pair struct {
	Source string
	Target string
}

// Name renders the pair as "{source}_to_{target}".
func (p Pair) Name() string {
	return p.Source + "_to_" + p.Target
}

func (p Pair) String() string {
	return p.Source + ":" + p.Target
}

// Registration describes a capability to add to a CapabilitySet.
type Registration struct {
	Source string
	Target string
	// Version defaults to 1.0.0.
	Version string
	// Status defaults to active.
	Status      string
	Description string
	Capability  Capability
}

// Entry is one registered version of a conversion.
type Entry struct {
	Pair        Pair
	Version     string
	Status      string
	Description string
	Capability  Capability
}

// ConversionInfo is the listing form of an Entry.
type ConversionInfo struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

// CapabilitySet maps (source, target) pairs to versioned capabilities. It is filled at
// startup and treated as read-only afterwards; a reload builds a new set.
type CapabilitySet struct {
	mu      sync.RWMutex
	entries map[Pair][]Entry
}

// NewCapabilitySet creates an empty set.
func NewCapabilitySet() *CapabilitySet {
	return &CapabilitySet{entries: make(map[Pair][]Entry)}
}

// Register adds a capability. Registering the same pair and version twice is an error.
func (s *CapabilitySet) Register(reg Registration) error {
	source := strings.TrimSpace(reg.Source)
	target := strings.TrimSpace(reg.Target)
	if !semver.ValidateAttributeName(source) || !semver.ValidateAttributeName(target) {
		return fmt.Errorf("%s - invalid attribute names %q:%q", capabilityLogPrefix, reg.Source, reg.Target)
	}
	if reg.Capability == nil {
		return fmt.Errorf("%s - %s:%s has no capability", capabilityLogPrefix, source, target)
	}
	version := reg.Version
	if version == "" {
		version = "1.0.0"
	}
	canonical, err := semver.ParseVersion(version)
	if err != nil {
		return err
	}
	status := reg.Status
	switch status {
	case "":
		status = semver.StatusActive
	case semver.StatusActive, semver.StatusDeprecated, semver.StatusDisabled:
	default:
		return fmt.Errorf("%s - unknown status %q for %s:%s", capabilityLogPrefix, status, source, target)
	}

	pair := Pair{Source: source, Target: target}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries[pair] {
		if e.Version == canonical {
			return fmt.Errorf("%s - %s@%s is already registered", capabilityLogPrefix, pair, canonical)
		}
	}
	s.entries[pair] = append(s.entries[pair], Entry{
		Pair:        pair,
		Version:     canonical,
		Status:      status,
		Description: reg.Description,
		Capability:  reg.Capability,
	})
	return nil
}

// Lookup returns the best entry for pair within rangeStr (empty selects the latest
// active version). Disabled versions are never returned.
func (s *CapabilitySet) Lookup(pair Pair, rangeStr string) (*Entry, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.entries[pair]
	if len(entries) == 0 {
		return nil, false
	}
	candidates := make([]semver.Candidate, len(entries))
	for i, e := range entries {
		candidates[i] = semver.Candidate{Version: e.Version, Status: e.Status, Index: i}
	}
	best := semver.Resolve(candidates, rangeStr)
	if best == nil {
		return nil, false
	}
	e := entries[best.Index]
	return &e, true
}

// List returns every registered version ordered by source, target and ascending version.
func (s *CapabilitySet) List() []ConversionInfo {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	out := make([]ConversionInfo, 0, len(s.entries))
	for _, entries := range s.entries {
		for _, e := range entries {
			out = append(out, ConversionInfo{
				Source:      e.Pair.Source,
				Target:      e.Pair.Target,
				Name:        e.Pair.Name(),
				Version:     e.Version,
				Status:      e.Status,
				Description: e.Description,
			})
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return lessVersion(out[i].Version, out[j].Version)
	})
	return out
}

// Len returns the number of registered pairs.
func (s *CapabilitySet) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func lessVersion(a, b string) bool {
	va, errA := masterminds.NewVersion(a)
	vb, errB := masterminds.NewVersion(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return va.LessThan(vb)
}
