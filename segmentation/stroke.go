package segmentation

import (
	"math"

	"github.com/golang/geo/r2"
)

// rasterizeStroke stamps a disc of brushRadius along each segment of a
// freehand path, given in pixel coordinates of the modality image it is drawn
// over. A single point yields a single disc.
func rasterizeStroke(width, height int, points []r2.Point, brushRadius float64) *Mask {
	m := NewMask(width, height)
	if len(points) == 0 {
		return m
	}
	if brushRadius < 0.5 {
		brushRadius = 0.5
	}
	stampDisc(m, points[0], brushRadius)
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		d := b.Sub(a)
		// step at half the brush radius so consecutive stamps overlap
		steps := int(math.Ceil(d.Norm()/(brushRadius/2))) + 1
		for s := 1; s <= steps; s++ {
			t := float64(s) / float64(steps)
			stampDisc(m, a.Add(d.Mul(t)), brushRadius)
		}
	}
	return m
}

func stampDisc(m *Mask, center r2.Point, radius float64) {
	minX := int(math.Floor(center.X - radius))
	maxX := int(math.Ceil(center.X + radius))
	minY := int(math.Floor(center.Y - radius))
	maxY := int(math.Ceil(center.Y + radius))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if math.Hypot(float64(x)-center.X, float64(y)-center.Y) <= radius {
				m.Set(x, y, true)
			}
		}
	}
}
