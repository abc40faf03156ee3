package segmentation

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func rectMask(w, h, x0, y0, x1, y1 int) *Mask {
	m := NewMask(w, h)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m.Set(x, y, true)
		}
	}
	return m
}

func TestMaskGetSetBounds(t *testing.T) {
	m := NewMask(4, 3)
	m.Set(1, 2, true)
	test.That(t, m.Get(1, 2), test.ShouldBeTrue)
	test.That(t, m.Count(), test.ShouldEqual, 1)

	// out-of-bounds access is a no-op, not a panic
	m.Set(-1, 0, true)
	m.Set(4, 0, true)
	m.Set(0, 3, true)
	test.That(t, m.Get(-1, 0), test.ShouldBeFalse)
	test.That(t, m.Get(4, 0), test.ShouldBeFalse)
	test.That(t, m.Count(), test.ShouldEqual, 1)
}

func TestMaskClone(t *testing.T) {
	m := rectMask(5, 5, 0, 0, 2, 2)
	clone := m.Clone()
	clone.Set(4, 4, true)
	test.That(t, m.Get(4, 4), test.ShouldBeFalse)
	test.That(t, clone.Count(), test.ShouldEqual, m.Count()+1)
}

func TestMaskSetOps(t *testing.T) {
	a := rectMask(10, 10, 0, 0, 6, 10)
	b := rectMask(10, 10, 4, 0, 10, 10)

	union, err := Union(a, b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, union.Count(), test.ShouldEqual, 100)
	// the composite never shrinks below either input
	test.That(t, union.Count(), test.ShouldBeGreaterThanOrEqualTo, a.Count())
	test.That(t, union.Count(), test.ShouldBeGreaterThanOrEqualTo, b.Count())

	inter, err := Intersect(a, b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, inter.Count(), test.ShouldEqual, 20)
	test.That(t, inter.Count(), test.ShouldBeLessThanOrEqualTo, a.Count())
	test.That(t, inter.Count(), test.ShouldBeLessThanOrEqualTo, b.Count())

	diff, err := Subtract(a, b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, diff.Count(), test.ShouldEqual, 40)
	test.That(t, diff.Get(0, 0), test.ShouldBeTrue)
	test.That(t, diff.Get(5, 0), test.ShouldBeFalse)

	_, err = Union(a, NewMask(3, 3))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestZeroEdgeRows(t *testing.T) {
	m := rectMask(10, 20, 0, 0, 10, 20)
	m.ZeroEdgeRows(0.05)
	test.That(t, m.Count(), test.ShouldEqual, 10*18)
	test.That(t, m.Get(0, 0), test.ShouldBeFalse)
	test.That(t, m.Get(0, 19), test.ShouldBeFalse)
	test.That(t, m.Get(0, 1), test.ShouldBeTrue)
	test.That(t, m.Get(0, 18), test.ShouldBeTrue)

	full := rectMask(10, 20, 0, 0, 10, 20)
	full.ZeroEdgeRows(0)
	test.That(t, full.Count(), test.ShouldEqual, 200)
}

func TestResampleTo(t *testing.T) {
	m := rectMask(10, 10, 2, 2, 8, 8)

	same := m.ResampleTo(10, 10)
	test.That(t, same, test.ShouldResemble, m)

	up := m.ResampleTo(20, 20)
	test.That(t, up.Width(), test.ShouldEqual, 20)
	test.That(t, up.Height(), test.ShouldEqual, 20)
	// the selected fraction of the frame stays roughly stable
	origFrac := float64(m.Count()) / 100
	upFrac := float64(up.Count()) / 400
	test.That(t, upFrac, test.ShouldAlmostEqual, origFrac, 0.1)
	test.That(t, up.Get(10, 10), test.ShouldBeTrue)
	test.That(t, up.Get(0, 0), test.ShouldBeFalse)

	down := up.ResampleTo(10, 10)
	test.That(t, down.Get(5, 5), test.ShouldBeTrue)
	test.That(t, down.Get(0, 0), test.ShouldBeFalse)
}

func TestRasterizeStroke(t *testing.T) {
	empty := rasterizeStroke(10, 10, nil, 2)
	test.That(t, empty.Count(), test.ShouldEqual, 0)

	dot := rasterizeStroke(10, 10, []r2.Point{{X: 5, Y: 5}}, 1.5)
	test.That(t, dot.Get(5, 5), test.ShouldBeTrue)
	test.That(t, dot.Get(5, 6), test.ShouldBeTrue)
	test.That(t, dot.Get(9, 9), test.ShouldBeFalse)

	// a segment covers every pixel along the line with no gaps
	line := rasterizeStroke(20, 20, []r2.Point{{X: 2, Y: 10}, {X: 17, Y: 10}}, 1)
	for x := 2; x <= 17; x++ {
		test.That(t, line.Get(x, 10), test.ShouldBeTrue)
	}
	test.That(t, line.Get(10, 15), test.ShouldBeFalse)
}
