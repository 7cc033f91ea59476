package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// RGB is a user-chosen display color
type RGB struct {
	R uint8 `json:"r" yaml:"r"`
	G uint8 `json:"g" yaml:"g"`
	B uint8 `json:"b" yaml:"b"`
}

// Hex returns the color as #rrggbb
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ClientSide identifies one of the two reserved client slots
type ClientSide string

const (
	ClientA ClientSide = "a"
	ClientB ClientSide = "b"
)

// Component represents a device placed on the topology canvas
type Component struct {
	ID          string        `json:"id" yaml:"id"`
	Type        ComponentType `json:"type" yaml:"type"`
	Position    Point         `json:"position" yaml:"position"`
	DisplayName string        `json:"display_name" yaml:"display_name"`
	IsClientA   bool          `json:"is_client_a,omitempty" yaml:"is_client_a,omitempty"`
	IsClientB   bool          `json:"is_client_b,omitempty" yaml:"is_client_b,omitempty"`
	Color       *RGB          `json:"color,omitempty" yaml:"color,omitempty"`
	AreaSize    *Size         `json:"area_size,omitempty" yaml:"area_size,omitempty"`
}

// NewComponent creates a component with a fresh id and the type's display name
func NewComponent(t ComponentType, pos Point) Component {
	return Component{
		ID:          uuid.NewString(),
		Type:        t,
		Position:    pos,
		DisplayName: t.DisplayName(),
	}
}

// NewClient creates a component flagged for the given client slot
func NewClient(t ComponentType, side ClientSide) Component {
	c := NewComponent(t, Point{})
	switch side {
	case ClientA:
		c.IsClientA = true
		c.DisplayName = "Client A"
	case ClientB:
		c.IsClientB = true
		c.DisplayName = "Client B"
	}
	return c
}

// IsClient reports whether the component occupies a client slot
func (c Component) IsClient() bool {
	return c.IsClientA || c.IsClientB
}

// ClientSide returns the slot the component occupies, if any
func (c Component) ClientSide() (ClientSide, bool) {
	switch {
	case c.IsClientA:
		return ClientA, true
	case c.IsClientB:
		return ClientB, true
	}
	return "", false
}

// Clone returns a deep copy so callers never share optional attributes
func (c Component) Clone() Component {
	out := c
	if c.Color != nil {
		color := *c.Color
		out.Color = &color
	}
	if c.AreaSize != nil {
		size := *c.AreaSize
		out.AreaSize = &size
	}
	return out
}

// Validate checks the invariants a single component must satisfy on its own
func (c Component) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("component id required")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownComponentType, c.Type)
	}
	if c.IsClientA && c.IsClientB {
		return fmt.Errorf("component %s cannot be both client A and client B", c.ID)
	}
	if c.IsClient() && !c.Type.CanBeClient() {
		return fmt.Errorf("%w: %s", ErrNotClientCapable, c.Type)
	}
	if c.Color != nil && !c.Type.SupportsCustomColor() {
		return fmt.Errorf("%w: %s", ErrCustomColorUnsupported, c.Type)
	}
	if c.AreaSize != nil {
		if !c.Type.IsArea() {
			return fmt.Errorf("%w: %s", ErrNotArea, c.Type)
		}
		if c.AreaSize.Width <= 0 || c.AreaSize.Height <= 0 {
			return fmt.Errorf("area size must be positive, got %gx%g", c.AreaSize.Width, c.AreaSize.Height)
		}
	}
	return nil
}

// AgentType is an opaque label assigned to a component by a training or
// visualization layer
type AgentType string
