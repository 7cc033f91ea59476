// Package spatial translates pointer input into topology coordinates:
// hit-testing, attachment-point detection, grid snapping and the reserved
// client zones that constrain placement.
package spatial

import (
	"math"

	"topolab/internal/domain"
)

const (
	DefaultHitRadius           = 50.0
	DefaultAttachmentOffset    = 45.0
	DefaultAttachmentHitRadius = 20.0
	DefaultGridSpacing         = 20.0
)

// Layer holds the geometry used by an interactive editor
type Layer struct {
	HitRadius           float64
	AttachmentOffset    float64
	AttachmentHitRadius float64
	GridSpacing         float64
	Zones               ZoneLayout
}

// DefaultLayer returns the reference geometry on a canvas of the given size
func DefaultLayer(canvasWidth, canvasHeight float64) Layer {
	return Layer{
		HitRadius:           DefaultHitRadius,
		AttachmentOffset:    DefaultAttachmentOffset,
		AttachmentHitRadius: DefaultAttachmentHitRadius,
		GridSpacing:         DefaultGridSpacing,
		Zones:               DefaultZones(canvasWidth, canvasHeight, DefaultZoneWidth),
	}
}

// HitTest returns the first component whose position is within the hit radius
func (l Layer) HitTest(p domain.Point, components []domain.Component) (string, bool) {
	return HitTest(p, components, l.HitRadius)
}

// DetectConnectionPoint returns the attachment side of center nearest to p
func (l Layer) DetectConnectionPoint(p, center domain.Point) (domain.AttachmentSide, bool) {
	return DetectConnectionPoint(p, center, l.AttachmentOffset, l.AttachmentHitRadius)
}

// Snap rounds p to the layer's grid
func (l Layer) Snap(p domain.Point) domain.Point {
	return SnapToGrid(p, l.GridSpacing)
}

// HitTest returns the id of the first component, in slice order, whose
// distance from p is strictly below radius.
func HitTest(p domain.Point, components []domain.Component, radius float64) (string, bool) {
	for _, c := range components {
		if p.Distance(c.Position) < radius {
			return c.ID, true
		}
	}
	return "", false
}

// AttachmentPoint returns the anchor position of side around center. Every
// anchor sits offset units from the center, diagonals included.
func AttachmentPoint(center domain.Point, side domain.AttachmentSide, offset float64) domain.Point {
	d := offset / math.Sqrt2
	switch side {
	case domain.SideTop:
		return center.Add(0, -offset)
	case domain.SideBottom:
		return center.Add(0, offset)
	case domain.SideLeft:
		return center.Add(-offset, 0)
	case domain.SideRight:
		return center.Add(offset, 0)
	case domain.SideTopLeft:
		return center.Add(-d, -d)
	case domain.SideTopRight:
		return center.Add(d, -d)
	case domain.SideBottomLeft:
		return center.Add(-d, d)
	case domain.SideBottomRight:
		return center.Add(d, d)
	}
	return center
}

// DetectConnectionPoint returns the nearest of the eight anchors around
// center if p is strictly within hitRadius of it.
func DetectConnectionPoint(p, center domain.Point, offset, hitRadius float64) (domain.AttachmentSide, bool) {
	var (
		best     domain.AttachmentSide
		bestDist = math.Inf(1)
	)
	for _, side := range domain.AllAttachmentSides() {
		d := p.Distance(AttachmentPoint(center, side, offset))
		if d < bestDist {
			best, bestDist = side, d
		}
	}
	if bestDist < hitRadius {
		return best, true
	}
	return "", false
}

// SnapToGrid rounds both coordinates to the nearest multiple of spacing.
// A non-positive spacing leaves p unchanged.
func SnapToGrid(p domain.Point, spacing float64) domain.Point {
	if spacing <= 0 {
		return p
	}
	return domain.Point{
		X: math.Round(p.X/spacing) * spacing,
		Y: math.Round(p.Y/spacing) * spacing,
	}
}
