package voxel

import (
	"context"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

func TestCropToFloor(t *testing.T) {
	g := &Grid{
		VoxelSize: 1,
		columnMin: map[ColumnKey]int64{{I: 0, J: 0}: 2},
	}
	set := NewSet()
	set.Add(VoxelCoords{I: 0, J: 0, K: 1}) // in front of the column's observed minimum
	set.Add(VoxelCoords{I: 0, J: 0, K: 3})
	set.Add(VoxelCoords{I: 0, J: 0, K: 9}) // behind the plane
	set.Add(VoxelCoords{I: 1, J: 1, K: 0}) // unobserved column, before the plane

	out := g.CropToFloor(set, FloorPlane{C: 5})
	test.That(t, out.Size(), test.ShouldEqual, 2)
	test.That(t, out.Contains(VoxelCoords{I: 0, J: 0, K: 3}), test.ShouldBeTrue)
	test.That(t, out.Contains(VoxelCoords{I: 1, J: 1, K: 0}), test.ShouldBeTrue)
}

func TestCropToFloorTiltedPlane(t *testing.T) {
	g := &Grid{VoxelSize: 1, columnMin: map[ColumnKey]int64{}}
	set := NewSet()
	set.Add(VoxelCoords{I: 0, J: 0, K: 0})
	set.Add(VoxelCoords{I: 4, J: 0, K: 0})

	// z = x: level with the plane at the first column's center (not strictly
	// before it), well before it at the second
	out := g.CropToFloor(set, FloorPlane{A: 1})
	test.That(t, out.Contains(VoxelCoords{I: 0, J: 0, K: 0}), test.ShouldBeFalse)
	test.That(t, out.Contains(VoxelCoords{I: 4, J: 0, K: 0}), test.ShouldBeTrue)
}

func TestCropToFloorIdempotent(t *testing.T) {
	logger := golog.NewTestLogger(t)
	g, err := Reconstruct(context.Background(), cubeShellCloud(), nil, ReconstructConfig{TargetDensity: 0.602}, logger)
	test.That(t, err, test.ShouldBeNil)

	plane := FloorPlane{C: 5.5}
	once := g.CropToFloor(g.Solid, plane)
	test.That(t, once.Size(), test.ShouldBeGreaterThan, 0)
	test.That(t, once.Size(), test.ShouldBeLessThan, g.Solid.Size())
	once.Iterate(func(c VoxelCoords) bool {
		test.That(t, float64(c.K)+0.5, test.ShouldBeLessThan, 5.5)
		return true
	})

	twice := g.CropToFloor(once, plane)
	test.That(t, twice, test.ShouldResemble, once)
}
