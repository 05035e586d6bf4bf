package converter

import (
	"fmt"
	"log/slog"

	"github.com/morezero/attribute-converter/pkg/bootstrap"
)

const buildLogPrefix = "converter:build"

// Build validates cfg and turns its conversions into a CapabilitySet whose service
// capabilities query through router. Chained conversions are wired to the latest
// enabled version of each hop.
func Build(cfg *bootstrap.Config, router Querier) (*CapabilitySet, error) {
	if err := bootstrap.Validate(cfg); err != nil {
		return nil, err
	}

	set := NewCapabilitySet()
	var chains []bootstrap.Conversion
	for _, conv := range cfg.Conversions {
		if conv.IsChain() {
			chains = append(chains, conv)
			continue
		}
		capability := &ServiceCapability{
			Router:  router,
			Service: conv.Service,
			Args:    conv.Args,
			Post:    conv.EffectiveMethod() == bootstrap.MethodPost,
			Body:    conv.Body,
		}
		if err := set.Register(registrationFor(conv, capability)); err != nil {
			return nil, fmt.Errorf("%s - %w", buildLogPrefix, err)
		}
	}

	for _, conv := range chains {
		steps := make([]Capability, 0, len(conv.Via)+1)
		for _, hop := range conv.Hops() {
			entry, ok := set.Lookup(Pair{Source: hop[0], Target: hop[1]}, "")
			if !ok {
				return nil, fmt.Errorf("%s - chain %s:%s: hop %s:%s has no enabled version",
					buildLogPrefix, conv.Source, conv.Target, hop[0], hop[1])
			}
			steps = append(steps, entry.Capability)
		}
		if err := set.Register(registrationFor(conv, &ChainCapability{Steps: steps})); err != nil {
			return nil, fmt.Errorf("%s - %w", buildLogPrefix, err)
		}
	}

	slog.Info(fmt.Sprintf("%s - Built %d conversion pairs (%d chained) over %d services",
		buildLogPrefix, set.Len(), len(chains), len(cfg.Services)))
	return set, nil
}

func registrationFor(conv bootstrap.Conversion, capability Capability) Registration {
	return Registration{
		Source:      conv.Source,
		Target:      conv.Target,
		Version:     conv.EffectiveVersion(),
		Status:      conv.Status,
		Description: conv.Description,
		Capability:  capability,
	}
}
