package semver

import (
	"fmt"
	"sort"

	masterminds "github.com/Masterminds/semver/v3"
)

const resolverLogPrefix = "semver:resolver"

// Version statuses.
const (
	StatusActive     = "active"
	StatusDeprecated = "deprecated"
	StatusDisabled   = "disabled"
)

// Candidate is one registered version of a conversion.
type Candidate struct {
	Version string
	Status  string
	// Index points back into the caller's slice of registrations.
	Index int
}

// ParseVersion validates a version string and returns its canonical form.
func ParseVersion(v string) (string, error) {
	sv, err := masterminds.NewVersion(v)
	if err != nil {
		return "", fmt.Errorf("%s - invalid version %q: %w", resolverLogPrefix, v, err)
	}
	return sv.String(), nil
}

// ValidateRange reports whether rangeStr can select versions.
func ValidateRange(rangeStr string) error {
	if rangeStr == "" || IsMajorOnly(rangeStr) || IsExactVersion(rangeStr) {
		return nil
	}
	if _, err := masterminds.NewConstraint(rangeStr); err != nil {
		return fmt.Errorf("%s - invalid range %q: %w", resolverLogPrefix, rangeStr, err)
	}
	return nil
}

// Resolve picks the best candidate for rangeStr. Disabled candidates are never selected
// and active ones win over deprecated ones of any version. An empty range picks the
// highest stable version, falling back to prereleases. Returns nil when nothing matches.
func Resolve(candidates []Candidate, rangeStr string) *Candidate {
	type parsed struct {
		c  Candidate
		sv *masterminds.Version
	}
	var pool []parsed
	for _, c := range candidates {
		if c.Status == StatusDisabled {
			continue
		}
		sv, err := masterminds.NewVersion(c.Version)
		if err != nil {
			continue
		}
		pool = append(pool, parsed{c: c, sv: sv})
	}
	if len(pool) == 0 {
		return nil
	}

	var match func(sv *masterminds.Version) bool
	switch {
	case rangeStr == "":
		match = func(*masterminds.Version) bool { return true }
	case IsMajorOnly(rangeStr):
		major := uint64(ExtractMajorFromRange(rangeStr))
		match = func(sv *masterminds.Version) bool { return sv.Major() == major }
	default:
		constraint, err := masterminds.NewConstraint(rangeStr)
		if err != nil {
			// Not a constraint: treat it as an exact version.
			match = func(sv *masterminds.Version) bool { return sv.Original() == rangeStr || sv.String() == rangeStr }
		} else {
			match = constraint.Check
		}
	}

	var matching []parsed
	for _, p := range pool {
		if match(p.sv) {
			matching = append(matching, p)
		}
	}
	if len(matching) == 0 {
		return nil
	}

	if rangeStr == "" || IsMajorOnly(rangeStr) {
		var stable []parsed
		for _, p := range matching {
			if p.sv.Prerelease() == "" {
				stable = append(stable, p)
			}
		}
		if len(stable) > 0 {
			matching = stable
		}
	}

	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].sv.GreaterThan(matching[j].sv)
	})
	for i := range matching {
		if matching[i].c.Status == StatusActive {
			c := matching[i].c
			return &c
		}
	}
	c := matching[0].c
	return &c
}

// SatisfiesRange checks if a version string satisfies a range.
func SatisfiesRange(version, rangeStr string) bool {
	sv, err := masterminds.NewVersion(version)
	if err != nil {
		return false
	}
	if rangeStr == "" {
		return true
	}
	if IsMajorOnly(rangeStr) {
		return int(sv.Major()) == ExtractMajorFromRange(rangeStr)
	}
	constraint, err := masterminds.NewConstraint(rangeStr)
	if err != nil {
		return false
	}
	return constraint.Check(sv)
}
