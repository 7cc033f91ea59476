package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version    int              `yaml:"version"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Canvas     CanvasConfig     `yaml:"canvas"`
	Simulation SimulationConfig `yaml:"simulation"`
	Rules      RulesConfig      `yaml:"rules"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// CanvasConfig describes the editing surface
type CanvasConfig struct {
	Width               float64 `yaml:"width" validate:"gt=0"`
	Height              float64 `yaml:"height" validate:"gt=0"`
	ZoneWidth           float64 `yaml:"zone_width" validate:"gt=0,ltfield=Width"`
	GridSpacing         float64 `yaml:"grid_spacing" validate:"gte=0"`
	HitRadius           float64 `yaml:"hit_radius" validate:"gt=0"`
	AttachmentOffset    float64 `yaml:"attachment_offset" validate:"gt=0"`
	AttachmentHitRadius float64 `yaml:"attachment_hit_radius" validate:"gt=0"`
}

// SimulationConfig holds packet generation settings
type SimulationConfig struct {
	GenerationInterval Duration `yaml:"generation_interval"`
	AnimationDuration  Duration `yaml:"animation_duration"`
	AnimationSteps     int      `yaml:"animation_steps" validate:"min=1"`
	MinPayload         int      `yaml:"min_payload" validate:"min=1"`
	MaxPayload         int      `yaml:"max_payload" validate:"gtefield=MinPayload"`
	Protocols          []string `yaml:"protocols" validate:"min=1,dive,required"`
	RespectFaults      bool     `yaml:"respect_faults"`
	Seed               string   `yaml:"seed" validate:"required"`
}

// RulesConfig points at an optional YAML rule table
type RulesConfig struct {
	// File replaces or extends the built-in matrix; empty keeps the defaults
	File string `yaml:"file,omitempty"`
}

// WatchConfig lists topology files reloaded on change
type WatchConfig struct {
	Files    []string `yaml:"files,omitempty"`
	Debounce Duration `yaml:"debounce,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
