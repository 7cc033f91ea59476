package simulation

import (
	"math"

	"topolab/internal/domain"
)

// packet is an in-flight packet. The path is fixed when it is created.
type packet struct {
	id       string
	path     []string
	anchors  []domain.Point
	protocol string
	bytes    int
	step     int
}

// Packet is a read-only view of an in-flight packet
type Packet struct {
	ID       string       `json:"id"`
	Path     []string     `json:"path"`
	Protocol string       `json:"protocol"`
	Bytes    int          `json:"bytes"`
	Progress float64      `json:"progress"`
	Segment  int          `json:"segment"`
	Position domain.Point `json:"position"`
}

// Hops returns the number of links on the path
func (p Packet) Hops() int {
	if len(p.Path) == 0 {
		return 0
	}
	return len(p.Path) - 1
}

// segmentAt returns the path segment for a progress value and the fraction
// travelled along it. Progress 1 maps to the end of the last segment.
func segmentAt(progress float64, hops int) (int, float64) {
	if hops <= 0 {
		return 0, 0
	}
	scaled := progress * float64(hops)
	seg := int(math.Floor(scaled))
	if seg >= hops {
		seg = hops - 1
	}
	if seg < 0 {
		seg = 0
	}
	return seg, scaled - float64(seg)
}

// Interpolate returns the position at progress along the polyline through
// points, one segment per hop.
func Interpolate(points []domain.Point, progress float64) domain.Point {
	switch len(points) {
	case 0:
		return domain.Point{}
	case 1:
		return points[0]
	}
	seg, t := segmentAt(progress, len(points)-1)
	return points[seg].Lerp(points[seg+1], t)
}
