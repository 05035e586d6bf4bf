package bootstrap

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/morezero/attribute-converter/pkg/semver"
)

const logPrefix = "bootstrap:loader"

// EnvBootstrapFile names the environment variable holding the bootstrap file path.
const EnvBootstrapFile = "CONVERTER_BOOTSTRAP_FILE"

var defaultPaths = []string{"config/converter.json", "config/converter.yaml", "converter.json"}

// CandidatePaths lists the files LoadConfig tries, in order: explicit paths, then
// CONVERTER_BOOTSTRAP_FILE, then the built-in defaults.
func CandidatePaths(paths ...string) []string {
	all := make([]string, 0, len(paths)+len(defaultPaths)+1)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv(EnvBootstrapFile); envPath != "" {
		all = append(all, envPath)
	}
	return append(all, defaultPaths...)
}

// LoadConfig loads the first readable and parseable candidate file. It returns the
// document together with the path it came from; the path is empty when the embedded
// default was used.
func LoadConfig(paths ...string) (*Config, string, error) {
	for _, p := range CandidatePaths(paths...) {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		cfg, err := LoadFile(p)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Skipping bootstrap file %s: %v", logPrefix, p, err))
			continue
		}
		slog.Info(fmt.Sprintf("%s - Loaded bootstrap config from %s (%d services, %d conversions)",
			logPrefix, p, len(cfg.Services), len(cfg.Conversions)))
		return cfg, p, nil
	}

	slog.Info(fmt.Sprintf("%s - Using default bootstrap config", logPrefix))
	return GetDefaultConfig(), "", nil
}

// LoadFile reads and parses one bootstrap file. The format follows the extension:
// .yaml and .yml are YAML, .toml is TOML, everything else is JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s - read %s: %w", logPrefix, path, err)
	}
	return Parse(data, formatFor(path))
}

// Format is a bootstrap document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

func formatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Parse decodes a bootstrap document.
func Parse(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%s - parse yaml: %w", logPrefix, err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%s - parse toml: %w", logPrefix, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%s - parse json: %w", logPrefix, err)
		}
	}
	if cfg.Services == nil {
		cfg.Services = map[string]Service{}
	}
	return &cfg, nil
}

// GetDefaultConfig returns the fallback document: no services and no conversions.
func GetDefaultConfig() *Config {
	return &Config{
		Name:        "attribute-converter",
		Version:     "1.0.0",
		Description: "Empty default converter configuration",
		Services:    map[string]Service{},
	}
}

// MergeConfigs overlays override onto base. Services are replaced by name and
// conversions by (source, target, version); new entries are appended. Neither input
// is modified.
func MergeConfigs(base, override *Config) *Config {
	merged := &Config{
		Name:        base.Name,
		Version:     base.Version,
		Description: base.Description,
		Services:    make(map[string]Service, len(base.Services)+len(override.Services)),
		Conversions: make([]Conversion, 0, len(base.Conversions)+len(override.Conversions)),
	}
	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Version != "" {
		merged.Version = override.Version
	}
	if override.Description != "" {
		merged.Description = override.Description
	}

	for name, svc := range base.Services {
		merged.Services[name] = svc
	}
	for name, svc := range override.Services {
		merged.Services[name] = svc
	}

	index := make(map[string]int, len(base.Conversions))
	for _, conv := range base.Conversions {
		index[conversionKey(&conv)] = len(merged.Conversions)
		merged.Conversions = append(merged.Conversions, conv)
	}
	for _, conv := range override.Conversions {
		key := conversionKey(&conv)
		if i, ok := index[key]; ok {
			merged.Conversions[i] = conv
			continue
		}
		index[key] = len(merged.Conversions)
		merged.Conversions = append(merged.Conversions, conv)
	}
	return merged
}

func conversionKey(c *Conversion) string {
	version := c.EffectiveVersion()
	if canonical, err := semver.ParseVersion(version); err == nil {
		version = canonical
	}
	return c.Source + ":" + c.Target + "@" + version
}
