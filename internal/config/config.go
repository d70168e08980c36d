package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "500ms" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(parsed)
	return nil
}

// Config holds the load-tuning knobs. The defaults reproduce the fixed
// constants a monitoring validation run expects: a 32MB float buffer and
// 1000 transform rounds per work item per dispatch.
type Config struct {
	// Vendor is matched case-insensitively as a substring of each
	// platform's vendor string.
	Vendor string `yaml:"vendor"`
	// Elements is the workload buffer size in float32 elements.
	Elements int `yaml:"elements"`
	// Rounds is the number of transform iterations per work item per
	// dispatch.
	Rounds int `yaml:"rounds"`
	// Stagger is the delay between successive worker launches when more
	// than one device is discovered.
	Stagger Duration `yaml:"stagger"`
	Metrics struct {
		// Addr enables the Prometheus endpoint when non-empty.
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Default returns the built-in configuration.
func Default() Config {
	cfg := Config{
		Vendor:   "Intel",
		Elements: 8 * 1024 * 1024,
		Rounds:   1000,
		Stagger:  Duration(500 * time.Millisecond),
	}
	return cfg
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Validate rejects values the kernel or the dispatch loop cannot work with.
func (c Config) Validate() error {
	if c.Vendor == "" {
		return fmt.Errorf("vendor must not be empty")
	}
	if c.Elements <= 0 {
		return fmt.Errorf("elements must be positive, got %d", c.Elements)
	}
	if c.Rounds <= 0 {
		return fmt.Errorf("rounds must be positive, got %d", c.Rounds)
	}
	if c.Stagger < 0 {
		return fmt.Errorf("stagger must not be negative, got %s", time.Duration(c.Stagger))
	}
	return nil
}
