package spatial

import "topolab/internal/domain"

// DefaultZoneWidth is the width of each reserved client strip
const DefaultZoneWidth = 120.0

// ZoneLayout holds the two regions reserved for the designated clients
type ZoneLayout struct {
	ClientA domain.Rect `json:"client_a" yaml:"client_a"`
	ClientB domain.Rect `json:"client_b" yaml:"client_b"`
}

// DefaultZones reserves a full-height strip on the left edge for client A and
// on the right edge for client B.
func DefaultZones(canvasWidth, canvasHeight, zoneWidth float64) ZoneLayout {
	return ZoneLayout{
		ClientA: domain.Rect{X: 0, Y: 0, Width: zoneWidth, Height: canvasHeight},
		ClientB: domain.Rect{X: canvasWidth - zoneWidth, Y: 0, Width: zoneWidth, Height: canvasHeight},
	}
}

// Zone returns the rectangle reserved for side
func (z ZoneLayout) Zone(side domain.ClientSide) domain.Rect {
	if side == domain.ClientB {
		return z.ClientB
	}
	return z.ClientA
}

// ZoneAt reports which client zone, if any, contains p
func (z ZoneLayout) ZoneAt(p domain.Point) (domain.ClientSide, bool) {
	switch {
	case !z.ClientA.Empty() && z.ClientA.Contains(p):
		return domain.ClientA, true
	case !z.ClientB.Empty() && z.ClientB.Contains(p):
		return domain.ClientB, true
	}
	return "", false
}

// Center is the pinned position of the client occupying side
func (z ZoneLayout) Center(side domain.ClientSide) domain.Point {
	return z.Zone(side).Center()
}

// PlacementAllowed reports whether a non-client may sit at p. Clients are
// always allowed because they are pinned to their zone centre instead.
func (z ZoneLayout) PlacementAllowed(p domain.Point, isClient bool) bool {
	if isClient {
		return true
	}
	_, inZone := z.ZoneAt(p)
	return !inZone
}
