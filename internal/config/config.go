// Package config provides configuration management for topolab.
//
// Config file locations (priority order):
//  1. $TOPOLAB_CONFIG
//  2. ./topolab.yaml
//  3. $XDG_CONFIG_HOME/topolab/topolab.yaml
//  4. ~/.config/topolab/topolab.yaml
//  5. /etc/topolab/topolab.yaml
//
// Missing fields take their defaults, then the whole file is validated.
// Relative rules.file and watch.files entries are taken relative to the
// directory holding the config file.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"topolab/internal/rules"
	"topolab/internal/simulation"
	"topolab/internal/spatial"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, path, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, path, nil
}

// Parse decodes YAML config bytes, applies defaults and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./topolab.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Canvas.Width == 0 {
		c.Canvas.Width = 1200
	}
	if c.Canvas.Height == 0 {
		c.Canvas.Height = 800
	}
	if c.Canvas.ZoneWidth == 0 {
		c.Canvas.ZoneWidth = spatial.DefaultZoneWidth
	}
	if c.Canvas.GridSpacing == 0 {
		c.Canvas.GridSpacing = spatial.DefaultGridSpacing
	}
	if c.Canvas.HitRadius == 0 {
		c.Canvas.HitRadius = spatial.DefaultHitRadius
	}
	if c.Canvas.AttachmentOffset == 0 {
		c.Canvas.AttachmentOffset = spatial.DefaultAttachmentOffset
	}
	if c.Canvas.AttachmentHitRadius == 0 {
		c.Canvas.AttachmentHitRadius = spatial.DefaultAttachmentHitRadius
	}

	sim := simulation.DefaultConfig()
	if c.Simulation.GenerationInterval == 0 {
		c.Simulation.GenerationInterval = Duration(sim.GenerationInterval)
	}
	if c.Simulation.AnimationDuration == 0 {
		c.Simulation.AnimationDuration = Duration(sim.AnimationDuration)
	}
	if c.Simulation.AnimationSteps == 0 {
		c.Simulation.AnimationSteps = sim.AnimationSteps
	}
	if c.Simulation.MinPayload == 0 {
		c.Simulation.MinPayload = sim.MinPayload
	}
	if c.Simulation.MaxPayload == 0 {
		c.Simulation.MaxPayload = sim.MaxPayload
	}
	if len(c.Simulation.Protocols) == 0 {
		c.Simulation.Protocols = sim.Protocols
	}
	if c.Simulation.Seed == "" {
		c.Simulation.Seed = sim.StreamName
	}

	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = Duration(500 * time.Millisecond)
	}
}

// Validate checks struct constraints and the derived simulation settings
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.SimulationSettings().Validate(); err != nil {
		return err
	}
	return nil
}

// SimulationSettings converts the simulation section for the scheduler
func (c *Config) SimulationSettings() simulation.Config {
	return simulation.Config{
		GenerationInterval: c.Simulation.GenerationInterval.Duration(),
		AnimationDuration:  c.Simulation.AnimationDuration.Duration(),
		AnimationSteps:     c.Simulation.AnimationSteps,
		MinPayload:         c.Simulation.MinPayload,
		MaxPayload:         c.Simulation.MaxPayload,
		Protocols:          append([]string(nil), c.Simulation.Protocols...),
		RespectFaults:      c.Simulation.RespectFaults,
		StreamName:         c.Simulation.Seed,
	}
}

// Zones returns the client zone layout for the configured canvas
func (c *Config) Zones() spatial.ZoneLayout {
	return spatial.DefaultZones(c.Canvas.Width, c.Canvas.Height, c.Canvas.ZoneWidth)
}

// Layer returns the spatial interaction geometry for the configured canvas
func (c *Config) Layer() spatial.Layer {
	return spatial.Layer{
		HitRadius:           c.Canvas.HitRadius,
		AttachmentOffset:    c.Canvas.AttachmentOffset,
		AttachmentHitRadius: c.Canvas.AttachmentHitRadius,
		GridSpacing:         c.Canvas.GridSpacing,
		Zones:               c.Zones(),
	}
}

// RuleEngine returns the configured connection rule table
func (c *Config) RuleEngine() (*rules.Engine, error) {
	if c.Rules.File == "" {
		return rules.Default(), nil
	}
	return rules.LoadFile(c.Rules.File)
}

// NewLogger builds a slog logger from the log section
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	rulesSource := "built-in"
	if c.Rules.File != "" {
		rulesSource = c.Rules.File
	}
	summary := fmt.Sprintf("Server: %s, Database: %s\n", c.Server.Addr, c.Database.Path)
	summary += fmt.Sprintf("Canvas: %gx%g (zones %g wide, grid %g)\n",
		c.Canvas.Width, c.Canvas.Height, c.Canvas.ZoneWidth, c.Canvas.GridSpacing)
	summary += fmt.Sprintf("Simulation: every %s, %s over %d steps, payload %d-%d bytes\n",
		c.Simulation.GenerationInterval.Duration(), c.Simulation.AnimationDuration.Duration(),
		c.Simulation.AnimationSteps, c.Simulation.MinPayload, c.Simulation.MaxPayload)
	summary += fmt.Sprintf("Rules: %s", rulesSource)
	return summary
}
