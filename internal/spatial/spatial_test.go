package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"topolab/internal/domain"
)

func TestHitTest(t *testing.T) {
	components := []domain.Component{
		{ID: "a", Position: domain.Pt(100, 100)},
		{ID: "b", Position: domain.Pt(130, 100)},
		{ID: "c", Position: domain.Pt(400, 400)},
	}

	t.Run("returns first component in range", func(t *testing.T) {
		id, ok := HitTest(domain.Pt(120, 100), components, DefaultHitRadius)
		assert.True(t, ok)
		assert.Equal(t, "a", id)
	})

	t.Run("radius is exclusive", func(t *testing.T) {
		_, ok := HitTest(domain.Pt(450, 400), components[2:], DefaultHitRadius)
		assert.False(t, ok)
	})

	t.Run("misses empty space", func(t *testing.T) {
		_, ok := HitTest(domain.Pt(250, 250), components, DefaultHitRadius)
		assert.False(t, ok)
	})
}

func TestDetectConnectionPoint(t *testing.T) {
	center := domain.Pt(200, 200)
	d := DefaultAttachmentOffset / math.Sqrt2

	tests := []struct {
		name  string
		point domain.Point
		side  domain.AttachmentSide
		hit   bool
	}{
		{"top", domain.Pt(200, 155), domain.SideTop, true},
		{"bottom near", domain.Pt(205, 248), domain.SideBottom, true},
		{"left", domain.Pt(150, 200), domain.SideLeft, true},
		{"right", domain.Pt(245, 200), domain.SideRight, true},
		{"top right diagonal", domain.Pt(200+d, 200-d), domain.SideTopRight, true},
		{"bottom left diagonal", domain.Pt(200-d+2, 200+d), domain.SideBottomLeft, true},
		{"center is too far from every anchor", center, "", false},
		{"far away", domain.Pt(500, 500), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			side, ok := DetectConnectionPoint(tt.point, center, DefaultAttachmentOffset, DefaultAttachmentHitRadius)
			assert.Equal(t, tt.hit, ok)
			assert.Equal(t, tt.side, side)
		})
	}
}

func TestAttachmentPointDistance(t *testing.T) {
	center := domain.Pt(10, 10)
	for _, side := range domain.AllAttachmentSides() {
		p := AttachmentPoint(center, side, 45)
		assert.InDelta(t, 45, p.Distance(center), 1e-9, "side %s", side)
	}
}

func TestSnapToGrid(t *testing.T) {
	tests := []struct {
		in      domain.Point
		spacing float64
		want    domain.Point
	}{
		{domain.Pt(0, 0), 20, domain.Pt(0, 0)},
		{domain.Pt(9, 11), 20, domain.Pt(0, 20)},
		{domain.Pt(31, 49), 20, domain.Pt(40, 40)},
		{domain.Pt(-9, -11), 20, domain.Pt(0, -20)},
		{domain.Pt(13, 27), 25, domain.Pt(25, 25)},
		{domain.Pt(13, 27), 0, domain.Pt(13, 27)},
	}

	for _, tt := range tests {
		got := SnapToGrid(tt.in, tt.spacing)
		assert.InDelta(t, tt.want.X, got.X, 1e-9)
		assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
	}
}

func TestZoneLayout(t *testing.T) {
	z := DefaultZones(1000, 600, DefaultZoneWidth)

	t.Run("zone lookup", func(t *testing.T) {
		side, ok := z.ZoneAt(domain.Pt(60, 300))
		assert.True(t, ok)
		assert.Equal(t, domain.ClientA, side)

		side, ok = z.ZoneAt(domain.Pt(950, 10))
		assert.True(t, ok)
		assert.Equal(t, domain.ClientB, side)

		_, ok = z.ZoneAt(domain.Pt(500, 300))
		assert.False(t, ok)
	})

	t.Run("centres", func(t *testing.T) {
		assert.Equal(t, domain.Pt(60, 300), z.Center(domain.ClientA))
		assert.Equal(t, domain.Pt(940, 300), z.Center(domain.ClientB))
	})

	t.Run("placement", func(t *testing.T) {
		assert.False(t, z.PlacementAllowed(domain.Pt(10, 10), false))
		assert.True(t, z.PlacementAllowed(domain.Pt(10, 10), true))
		assert.True(t, z.PlacementAllowed(domain.Pt(500, 10), false))
	})

	t.Run("empty layout reserves nothing", func(t *testing.T) {
		_, ok := ZoneLayout{}.ZoneAt(domain.Pt(0, 0))
		assert.False(t, ok)
	})
}
