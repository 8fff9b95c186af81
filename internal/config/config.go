// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all cubone configuration.
type Config struct {
	Display Display `yaml:"display"`
	Watch   Watch   `yaml:"watch"`
	Log     Log     `yaml:"log"`
	Metrics Metrics `yaml:"metrics"`
}

// Display holds board rendering settings.
type Display struct {
	Style string `yaml:"style"` // "card" | "line"
	Width int    `yaml:"width"` // Card width in columns
	Plain bool   `yaml:"plain"` // Force plain text output
	Theme string `yaml:"theme"` // Markdown style: "dark" | "light" | "notty" | "ascii"
}

// Watch holds item file watching settings.
type Watch struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Log holds logger settings.
type Log struct {
	Level  string `yaml:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `yaml:"format"` // "json" | "console"
	File   string `yaml:"file"`   // Empty logs to stderr
}

// Metrics holds Prometheus exporter settings.
type Metrics struct {
	Addr      string `yaml:"addr"` // Empty disables the /metrics endpoint
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Display: Display{
			Style: "card",
			Width: 48,
			Theme: "dark",
		},
		Watch: Watch{
			Debounce: 150 * time.Millisecond,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
			File:   ".cubone/cubone.log",
		},
		Metrics: Metrics{
			Namespace: "cubone",
		},
	}
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	switch c.Display.Style {
	case "card", "line":
		// valid
	default:
		return fmt.Errorf("config: display.style must be \"card\" or \"line\", got %q", c.Display.Style)
	}
	if c.Display.Width < 16 {
		return fmt.Errorf("config: display.width must be at least 16, got %d", c.Display.Width)
	}
	switch c.Display.Theme {
	case "dark", "light", "notty", "ascii":
		// valid
	default:
		return fmt.Errorf("config: display.theme must be one of dark, light, notty, ascii, got %q", c.Display.Theme)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("config: watch.debounce must be non-negative, got %v", c.Watch.Debounce)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("config: log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
		// valid
	default:
		return fmt.Errorf("config: log.format must be \"json\" or \"console\", got %q", c.Log.Format)
	}
	if c.Metrics.Namespace == "" {
		return errors.New("config: metrics.namespace cannot be empty")
	}
	return nil
}

// LoadEnvFile loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: CUBONE_STYLE, CUBONE_WIDTH, CUBONE_LOG_LEVEL, CUBONE_DEBOUNCE.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("CUBONE_STYLE"); v != "" {
		c.Display.Style = v
	}
	if v := os.Getenv("CUBONE_WIDTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid CUBONE_WIDTH %q: %w", v, err)
		}
		c.Display.Width = n
	}
	if v := os.Getenv("CUBONE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CUBONE_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid CUBONE_DEBOUNCE %q: %w", v, err)
		}
		c.Watch.Debounce = d
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	Display *rawDisplay `yaml:"display"`
	Watch   *rawWatch   `yaml:"watch"`
	Log     *rawLog     `yaml:"log"`
	Metrics *rawMetrics `yaml:"metrics"`
}

type rawDisplay struct {
	Style *string `yaml:"style"`
	Width *int    `yaml:"width"`
	Plain *bool   `yaml:"plain"`
	Theme *string `yaml:"theme"`
}

type rawWatch struct {
	Debounce *time.Duration `yaml:"debounce"`
}

type rawLog struct {
	Level  *string `yaml:"level"`
	Format *string `yaml:"format"`
	File   *string `yaml:"file"`
}

type rawMetrics struct {
	Addr      *string `yaml:"addr"`
	Namespace *string `yaml:"namespace"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if d := layer.Display; d != nil {
		if d.Style != nil {
			c.Display.Style = *d.Style
		}
		if d.Width != nil {
			c.Display.Width = *d.Width
		}
		if d.Plain != nil {
			c.Display.Plain = *d.Plain
		}
		if d.Theme != nil {
			c.Display.Theme = *d.Theme
		}
	}
	if w := layer.Watch; w != nil {
		if w.Debounce != nil {
			c.Watch.Debounce = *w.Debounce
		}
	}
	if l := layer.Log; l != nil {
		if l.Level != nil {
			c.Log.Level = *l.Level
		}
		if l.Format != nil {
			c.Log.Format = *l.Format
		}
		if l.File != nil {
			c.Log.File = *l.File
		}
	}
	if m := layer.Metrics; m != nil {
		if m.Addr != nil {
			c.Metrics.Addr = *m.Addr
		}
		if m.Namespace != nil {
			c.Metrics.Namespace = *m.Namespace
		}
	}
}
