package voxel

import (
	"context"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/endev-llc/pocketscale/pointcloud"
)

// unitGrid reconstructs the corners of a side-2 cube with a voxel edge length
// of exactly 1 and the origin at (0,0,0), so camera and grid coordinates
// coincide.
func unitGrid(t *testing.T) *Grid {
	t.Helper()
	logger := golog.NewTestLogger(t)
	cloud := pointcloud.NewFromVectors([]r3.Vector{
		{X: 0, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}, {X: 0, Y: 2, Z: 0}, {X: 2, Y: 2, Z: 0},
		{X: 0, Y: 0, Z: 2}, {X: 2, Y: 0, Z: 2}, {X: 0, Y: 2, Z: 2}, {X: 2, Y: 2, Z: 2},
	})
	g, err := Reconstruct(context.Background(), cloud, nil, ReconstructConfig{TargetDensity: 1}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.VoxelSize, test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, g.Origin, test.ShouldResemble, r3.Vector{})
	return g
}

func planePoints(a, b, c float64) []r3.Vector {
	pts := make([]r3.Vector, 0, 64)
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			x, y := float64(i)+0.5, float64(j)+0.5
			pts = append(pts, r3.Vector{X: x, Y: y, Z: a*x + b*y + c})
		}
	}
	return pts
}

func TestFitPlaneLeastSquaresExact(t *testing.T) {
	pts := []r3.Vector{
		{X: 0, Y: 0, Z: 1},
		{X: 1, Y: 0, Z: 3},
		{X: 0, Y: 1, Z: 4},
		{X: 1, Y: 1, Z: 6},
		{X: 2, Y: 1, Z: 8},
	}
	plane, err := fitPlaneLeastSquares(pts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plane.A, test.ShouldAlmostEqual, 2, 1e-9)
	test.That(t, plane.B, test.ShouldAlmostEqual, 3, 1e-9)
	test.That(t, plane.C, test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, plane.ZAt(2, 2), test.ShouldAlmostEqual, 11, 1e-9)
}

func TestFitPlaneLeastSquaresDegenerate(t *testing.T) {
	_, err := fitPlaneLeastSquares([]r3.Vector{{X: 0}, {X: 1}})
	test.That(t, errors.Is(err, ErrDegenerateGeometry), test.ShouldBeTrue)

	// collinear columns leave the normal equations singular
	collinear := []r3.Vector{
		{X: 0, Y: 0, Z: 1},
		{X: 1, Y: 1, Z: 2},
		{X: 2, Y: 2, Z: 3},
		{X: 3, Y: 3, Z: 4},
	}
	_, err = fitPlaneLeastSquares(collinear)
	test.That(t, errors.Is(err, ErrDegenerateGeometry), test.ShouldBeTrue)
}

func TestFitFloor(t *testing.T) {
	g := unitGrid(t)
	plane, err := g.FitFloor(planePoints(0.1, 0.05, 5), DefaultFloorConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plane.A, test.ShouldAlmostEqual, 0.1, 1e-9)
	test.That(t, plane.B, test.ShouldAlmostEqual, 0.05, 1e-9)
	test.That(t, plane.C, test.ShouldAlmostEqual, 5, 1e-9)
}

func TestFitFloorRejectsForegroundLeak(t *testing.T) {
	g := unitGrid(t)
	// a blob of much closer points leaked into the background selection
	pts := planePoints(0.1, 0.05, 5)
	for i := 0; i < 10; i++ {
		pts = append(pts, r3.Vector{X: 3.5, Y: 3.5, Z: 1.2})
	}
	plane, err := g.FitFloor(pts, DefaultFloorConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plane.A, test.ShouldAlmostEqual, 0.1, 1e-9)
	test.That(t, plane.B, test.ShouldAlmostEqual, 0.05, 1e-9)
	test.That(t, plane.C, test.ShouldAlmostEqual, 5, 1e-9)
}

func TestFitFloorGradientFilter(t *testing.T) {
	g := unitGrid(t)
	// a depth spike close enough to survive the percentile filter is still
	// dropped for breaking local flatness
	pts := append(planePoints(0, 0, 5), r3.Vector{X: 3.5, Y: 3.5, Z: 7})
	plane, err := g.FitFloor(pts, DefaultFloorConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plane.A, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, plane.B, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, plane.C, test.ShouldAlmostEqual, 5, 1e-9)
}

func TestFitFloorDegenerate(t *testing.T) {
	g := unitGrid(t)
	_, err := g.FitFloor([]r3.Vector{{Z: 5}, {X: 1, Z: 5}}, DefaultFloorConfig())
	test.That(t, errors.Is(err, ErrDegenerateGeometry), test.ShouldBeTrue)

	empty := &Grid{}
	_, err = empty.FitFloor(planePoints(0, 0, 5), DefaultFloorConfig())
	test.That(t, errors.Is(err, ErrDegenerateGeometry), test.ShouldBeTrue)
}

func TestFitFloorFromSurface(t *testing.T) {
	logger := golog.NewTestLogger(t)
	g, err := Reconstruct(context.Background(), cubeShellCloud(), nil, ReconstructConfig{TargetDensity: 0.602}, logger)
	test.That(t, err, test.ShouldBeNil)

	// the cube's dilated top surface is flat, so the hull fit is level with it
	plane, err := g.FitFloorFromSurface()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plane.A, test.ShouldAlmostEqual, 0, 1e-6)
	test.That(t, plane.B, test.ShouldAlmostEqual, 0, 1e-6)
	test.That(t, plane.ZAt(5, 5), test.ShouldAlmostEqual, 11.5, 1e-6)

	empty := &Grid{}
	_, err = empty.FitFloorFromSurface()
	test.That(t, errors.Is(err, ErrDegenerateGeometry), test.ShouldBeTrue)
}
