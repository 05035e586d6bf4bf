// Package semver parses conversion references and selects conversion versions.
package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const logPrefix = "semver:parser"

// ConversionRef is a parsed "source:target[@range]" reference.
type ConversionRef struct {
	Source string
	Target string
	// Range is a SemVer range, a major-only number, an exact version, or empty.
	Range string
	Raw   string
}

var (
	attributeNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`)
	majorOnlyRegex     = regexp.MustCompile(`^\d+$`)
	exactVersionRegex  = regexp.MustCompile(`^\d+\.\d+\.\d+(-[\w.]+)?(\+[\w.]+)?$`)
)

// ParseConversionRef parses a conversion reference.
//
// Supported formats:
//   - smiles:inchi          (latest active version)
//   - smiles:inchi@2        (major only)
//   - smiles:inchi@2.1.0    (exact version)
//   - smiles:inchi@^2.1.0   (caret range, any Masterminds constraint)
func ParseConversionRef(input string) (*ConversionRef, error) {
	raw := strings.TrimSpace(input)

	pairPart := raw
	rangeStr := ""
	if at := strings.Index(raw, "@"); at >= 0 {
		pairPart = raw[:at]
		rangeStr = strings.TrimSpace(raw[at+1:])
		if rangeStr == "" {
			return nil, fmt.Errorf("%s - empty version range: %s", logPrefix, raw)
		}
	}

	colon := strings.Index(pairPart, ":")
	if colon == -1 {
		return nil, fmt.Errorf("%s - invalid conversion format, expected source:target: %s", logPrefix, raw)
	}
	source := strings.TrimSpace(pairPart[:colon])
	target := strings.TrimSpace(pairPart[colon+1:])
	if !ValidateAttributeName(source) || !ValidateAttributeName(target) {
		return nil, fmt.Errorf("%s - invalid attribute names in %s", logPrefix, raw)
	}

	return &ConversionRef{Source: source, Target: target, Range: rangeStr, Raw: raw}, nil
}

// String renders the reference back into its canonical form.
func (r *ConversionRef) String() string {
	base := r.Source + ":" + r.Target
	if r.Range != "" {
		return base + "@" + r.Range
	}
	return base
}

// IsMajorOnly checks if a range is a major-only specifier (e.g., "3").
func IsMajorOnly(rangeStr string) bool {
	return majorOnlyRegex.MatchString(rangeStr)
}

// IsExactVersion checks if a range is an exact version (e.g., "3.2.1").
func IsExactVersion(rangeStr string) bool {
	return exactVersionRegex.MatchString(rangeStr)
}

// ExtractMajorFromRange returns the major of a major-only range, or -1.
func ExtractMajorFromRange(rangeStr string) int {
	if !IsMajorOnly(rangeStr) {
		return -1
	}
	major, err := strconv.Atoi(rangeStr)
	if err != nil {
		return -1
	}
	return major
}

// ValidateAttributeName validates an attribute name (letters, digits, dots, hyphens,
// underscores; must start with a letter).
func ValidateAttributeName(name string) bool {
	return attributeNameRegex.MatchString(name)
}
