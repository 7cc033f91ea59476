package simulation

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Transport labels drawn for generated packets
const (
	ProtocolTCP   = "TCP"
	ProtocolUDP   = "UDP"
	ProtocolHTTP  = "HTTP"
	ProtocolHTTPS = "HTTPS"
)

// Config controls packet generation and animation
type Config struct {
	GenerationInterval time.Duration `yaml:"generation_interval" validate:"gt=0"`
	AnimationDuration  time.Duration `yaml:"animation_duration" validate:"gt=0"`
	AnimationSteps     int           `yaml:"animation_steps" validate:"min=1"`
	MinPayload         int           `yaml:"min_payload" validate:"min=1"`
	MaxPayload         int           `yaml:"max_payload" validate:"gtefield=MinPayload"`
	Protocols          []string      `yaml:"protocols" validate:"min=1,dive,required"`
	RespectFaults      bool          `yaml:"respect_faults"`
	StreamName         string        `yaml:"stream_name" validate:"required"`
}

// DefaultConfig returns the reference timing: a packet every 500ms, each
// animated over 2s in 60 steps.
func DefaultConfig() Config {
	return Config{
		GenerationInterval: 500 * time.Millisecond,
		AnimationDuration:  2 * time.Second,
		AnimationSteps:     60,
		MinPayload:         64,
		MaxPayload:         1500,
		Protocols:          []string{ProtocolTCP, ProtocolUDP, ProtocolHTTP, ProtocolHTTPS},
		StreamName:         "packets",
	}
}

// StepInterval is the time between animation ticks
func (c Config) StepInterval() time.Duration {
	return c.AnimationDuration / time.Duration(c.AnimationSteps)
}

// Validate checks the config for consistency
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid simulation config: %w", err)
	}
	if c.StepInterval() <= 0 {
		return fmt.Errorf("invalid simulation config: animation duration %s too short for %d steps", c.AnimationDuration, c.AnimationSteps)
	}
	return nil
}
