package platform

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/timeline/pkg/core"
	"github.com/aretw0/timeline/pkg/differ"
)

//go:embed default.yaml
var defaultConfig []byte

// Config is the declarative registry: which aspects make up each category of
// each entity type, and which differ interprets each aspect.
type Config struct {
	// Lookback is a time.ParseDuration string; empty keeps the service default.
	Lookback string                                  `yaml:"lookback,omitempty"`
	Entities map[string]map[core.Category][]Binding `yaml:"entities"`
}

// Binding attaches a differ to one aspect of a category.
type Binding struct {
	Aspect     string                   `yaml:"aspect"`
	Differ     differ.Kind              `yaml:"differ,omitempty"`
	Paths      []string                 `yaml:"paths,omitempty"`
	Severities map[string]core.Severity `yaml:"severities,omitempty"`
}

// DefaultConfig returns the embedded dataset registry.
func DefaultConfig() (*Config, error) {
	return ParseConfig(defaultConfig)
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the parts of the configuration the registries cannot
// check themselves.
func (c *Config) Validate() error {
	if _, err := c.LookbackDuration(); err != nil {
		return err
	}
	if len(c.Entities) == 0 {
		return fmt.Errorf("%w: no entity types configured", core.ErrInvalidConfig)
	}
	for entityType, categories := range c.Entities {
		if entityType == "" {
			return fmt.Errorf("%w: empty entity type", core.ErrInvalidConfig)
		}
		for category, bindings := range categories {
			if core.ParseCategory(string(category)) == "" {
				return fmt.Errorf("%w: entity %s: empty category", core.ErrInvalidConfig, entityType)
			}
			seen := make(map[string]bool, len(bindings))
			for _, b := range bindings {
				if b.Aspect == "" {
					return fmt.Errorf("%w: %s/%s: binding without aspect", core.ErrInvalidConfig, entityType, category)
				}
				if seen[b.Aspect] {
					return fmt.Errorf("%w: %s/%s: aspect %s bound twice", core.ErrInvalidConfig, entityType, category, b.Aspect)
				}
				seen[b.Aspect] = true
			}
		}
	}
	return nil
}

// LookbackDuration parses Lookback. Zero means unset.
func (c *Config) LookbackDuration() (time.Duration, error) {
	if c.Lookback == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Lookback)
	if err != nil {
		return 0, fmt.Errorf("%w: lookback: %w", core.ErrInvalidConfig, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: lookback must be positive, got %s", core.ErrInvalidConfig, c.Lookback)
	}
	return d, nil
}

// Registries builds the immutable category and differ registries.
func (c *Config) Registries() (*core.CategoryRegistry, *core.DifferRegistry, error) {
	table := make(map[string]map[core.Category][]string, len(c.Entities))
	differs := make(map[core.DifferKey]core.Differ)

	for _, entityType := range sortedKeys(c.Entities) {
		categories := c.Entities[entityType]
		table[entityType] = make(map[core.Category][]string, len(categories))
		for name, bindings := range categories {
			category := core.ParseCategory(string(name))
			for _, b := range bindings {
				d, err := differ.New(b.Differ, differ.Options{Paths: b.Paths, Severities: b.Severities})
				if err != nil {
					return nil, nil, fmt.Errorf("%w: %s/%s/%s: %w", core.ErrInvalidConfig, entityType, category, b.Aspect, err)
				}
				table[entityType][category] = append(table[entityType][category], b.Aspect)
				differs[core.DifferKey{EntityType: entityType, Category: category, Aspect: b.Aspect}] = d
			}
		}
	}

	return core.NewCategoryRegistry(table), core.NewDifferRegistry(differs), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
