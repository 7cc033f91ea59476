package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestMakePairKey(t *testing.T) {
	if MakePairKey("a", "b") != MakePairKey("b", "a") {
		t.Error("pair keys must ignore endpoint order")
	}
	if MakePairKey("a", "b") == MakePairKey("a", "c") {
		t.Error("different pairs must not collide")
	}

	c := NewConnection("z", "y", ConnectionFiber)
	if c.Pair() != (PairKey{Lo: "y", Hi: "z"}) {
		t.Errorf("unexpected pair %+v", c.Pair())
	}
}

func TestConnectionEndpoints(t *testing.T) {
	c := NewConnection("r1", "s1", ConnectionWired)

	if !c.Touches("r1") || !c.Touches("s1") || c.Touches("x") {
		t.Error("Touches must match exactly the two endpoints")
	}
	if c.Other("r1") != "s1" || c.Other("s1") != "r1" {
		t.Error("Other must return the opposite endpoint")
	}
}

func TestConnectionValidate(t *testing.T) {
	bad := AttachmentSide("middle")

	tests := []struct {
		name    string
		mutate  func(c *Connection)
		wantErr bool
	}{
		{"valid", func(c *Connection) {}, false},
		{"curve and sides", func(c *Connection) {
			top, left := SideTop, SideBottomLeft
			c.FromPoint, c.ToPoint = &top, &left
			c.Curve = CurveOrthogonal
		}, false},
		{"missing id", func(c *Connection) { c.ID = "" }, true},
		{"missing endpoint", func(c *Connection) { c.ToID = "" }, true},
		{"self loop", func(c *Connection) { c.ToID = c.FromID }, true},
		{"unknown kind", func(c *Connection) { c.Kind = "carrier_pigeon" }, true},
		{"unknown side", func(c *Connection) { c.FromPoint = &bad }, true},
		{"unknown curve", func(c *Connection) { c.Curve = "spiral" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConnection("a", "b", ConnectionWireless)
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("invalid connection error", func(t *testing.T) {
		c := NewConnection("a", "b", "carrier_pigeon")
		if err := c.Validate(); !errors.Is(err, ErrInvalidConnection) {
			t.Errorf("expected ErrInvalidConnection, got %v", err)
		}
		c = NewConnection("a", "b", ConnectionWired)
		c.Curve = "spiral"
		if err := c.Validate(); !errors.Is(err, ErrInvalidConnection) {
			t.Errorf("expected ErrInvalidConnection, got %v", err)
		}
	})

	t.Run("self loop error", func(t *testing.T) {
		c := NewConnection("a", "a", ConnectionWired)
		if err := c.Validate(); !errors.Is(err, ErrSelfLoop) {
			t.Errorf("expected ErrSelfLoop, got %v", err)
		}
	})
}

func TestConnectionClone(t *testing.T) {
	side := SideRight
	c := NewConnection("a", "b", ConnectionWired)
	c.FromPoint = &side
	c.Control = &Point{X: 1, Y: 2}

	clone := c.Clone()
	*clone.FromPoint = SideLeft
	clone.Control.X = 50

	if *c.FromPoint != SideRight || c.Control.X != 1 {
		t.Error("clone shares pointers with the original")
	}
}

func TestConnectionRejectedError(t *testing.T) {
	var err error = &ConnectionRejectedError{From: ComponentTypeRouter, To: ComponentTypePrinter, Reason: "not allowed"}
	wrapped := fmt.Errorf("add connection: %w", err)

	if !errors.Is(wrapped, ErrConnectionRejected) {
		t.Error("rejection must match ErrConnectionRejected")
	}
	reason, ok := RejectionReason(wrapped)
	if !ok || reason != "not allowed" {
		t.Errorf("expected reason, got %q %v", reason, ok)
	}
	if _, ok := RejectionReason(ErrSelfLoop); ok {
		t.Error("other errors carry no rejection reason")
	}
}

func TestStatus(t *testing.T) {
	s := DefaultStatus()
	if !s.Healthy() || !s.Forwarding() {
		t.Error("default status is healthy and forwarding")
	}

	s.Blocking = true
	if s.Forwarding() || s.Healthy() {
		t.Error("a blocking component neither forwards nor is healthy")
	}

	s = DefaultStatus()
	s.LatencyMs = 500
	if !s.Forwarding() || s.Healthy() {
		t.Error("latency degrades health without stopping traffic")
	}
}
