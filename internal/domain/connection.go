package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ConnectionKind represents the physical or logical medium of a link
type ConnectionKind string

const (
	ConnectionWired    ConnectionKind = "wired"
	ConnectionWireless ConnectionKind = "wireless"
	ConnectionFiber    ConnectionKind = "fiber"
	ConnectionVPN      ConnectionKind = "vpn"
)

// Valid reports whether k is a known connection kind
func (k ConnectionKind) Valid() bool {
	switch k {
	case ConnectionWired, ConnectionWireless, ConnectionFiber, ConnectionVPN:
		return true
	}
	return false
}

// AttachmentSide is one of eight named anchor points around a component
type AttachmentSide string

const (
	SideTop         AttachmentSide = "top"
	SideBottom      AttachmentSide = "bottom"
	SideLeft        AttachmentSide = "left"
	SideRight       AttachmentSide = "right"
	SideTopLeft     AttachmentSide = "top_left"
	SideTopRight    AttachmentSide = "top_right"
	SideBottomLeft  AttachmentSide = "bottom_left"
	SideBottomRight AttachmentSide = "bottom_right"
)

// AllAttachmentSides lists the sides in a fixed order
func AllAttachmentSides() []AttachmentSide {
	return []AttachmentSide{
		SideTop, SideBottom, SideLeft, SideRight,
		SideTopLeft, SideTopRight, SideBottomLeft, SideBottomRight,
	}
}

// Valid reports whether s is a known attachment side
func (s AttachmentSide) Valid() bool {
	switch s {
	case SideTop, SideBottom, SideLeft, SideRight,
		SideTopLeft, SideTopRight, SideBottomLeft, SideBottomRight:
		return true
	}
	return false
}

// CurveStyle is a rendering hint for how a connection is drawn
type CurveStyle string

const (
	CurveStraight   CurveStyle = "straight"
	CurveQuadratic  CurveStyle = "quadratic"
	CurveBezier     CurveStyle = "bezier"
	CurveOrthogonal CurveStyle = "orthogonal"
)

// Valid reports whether c is a known curve style; empty means straight
func (c CurveStyle) Valid() bool {
	switch c {
	case "", CurveStraight, CurveQuadratic, CurveBezier, CurveOrthogonal:
		return true
	}
	return false
}

// Connection represents an undirected link between two components.
// Attachment sides and curve fields are cosmetic only.
type Connection struct {
	ID        string          `json:"id" yaml:"id"`
	FromID    string          `json:"from_id" yaml:"from_id"`
	ToID      string          `json:"to_id" yaml:"to_id"`
	Kind      ConnectionKind  `json:"kind" yaml:"kind"`
	FromPoint *AttachmentSide `json:"from_point,omitempty" yaml:"from_point,omitempty"`
	ToPoint   *AttachmentSide `json:"to_point,omitempty" yaml:"to_point,omitempty"`
	Control   *Point          `json:"control,omitempty" yaml:"control,omitempty"`
	Curve     CurveStyle      `json:"curve,omitempty" yaml:"curve,omitempty"`
}

// NewConnection creates a connection with a fresh id
func NewConnection(fromID, toID string, kind ConnectionKind) Connection {
	return Connection{
		ID:     uuid.NewString(),
		FromID: fromID,
		ToID:   toID,
		Kind:   kind,
	}
}

// PairKey is the normalized unordered endpoint pair
type PairKey struct {
	Lo, Hi string
}

// MakePairKey normalizes two endpoints so (a,b) and (b,a) are equal
func MakePairKey(a, b string) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Lo: a, Hi: b}
}

// Pair returns the normalized endpoint pair of the connection
func (c Connection) Pair() PairKey {
	return MakePairKey(c.FromID, c.ToID)
}

// Touches reports whether id is one of the endpoints
func (c Connection) Touches(id string) bool {
	return c.FromID == id || c.ToID == id
}

// Other returns the endpoint opposite id
func (c Connection) Other(id string) string {
	if c.FromID == id {
		return c.ToID
	}
	return c.FromID
}

// Clone returns a deep copy of the connection
func (c Connection) Clone() Connection {
	out := c
	if c.FromPoint != nil {
		side := *c.FromPoint
		out.FromPoint = &side
	}
	if c.ToPoint != nil {
		side := *c.ToPoint
		out.ToPoint = &side
	}
	if c.Control != nil {
		p := *c.Control
		out.Control = &p
	}
	return out
}

// Validate checks the invariants a connection must satisfy on its own
func (c Connection) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: id required", ErrInvalidConnection)
	}
	if c.FromID == "" || c.ToID == "" {
		return fmt.Errorf("%w %s: both endpoints required", ErrInvalidConnection, c.ID)
	}
	if c.FromID == c.ToID {
		return fmt.Errorf("connection %s: %w", c.ID, ErrSelfLoop)
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w %s: unknown kind %q", ErrInvalidConnection, c.ID, c.Kind)
	}
	if c.FromPoint != nil && !c.FromPoint.Valid() {
		return fmt.Errorf("%w %s: unknown attachment side %q", ErrInvalidConnection, c.ID, *c.FromPoint)
	}
	if c.ToPoint != nil && !c.ToPoint.Valid() {
		return fmt.Errorf("%w %s: unknown attachment side %q", ErrInvalidConnection, c.ID, *c.ToPoint)
	}
	if !c.Curve.Valid() {
		return fmt.Errorf("%w %s: unknown curve style %q", ErrInvalidConnection, c.ID, c.Curve)
	}
	return nil
}
