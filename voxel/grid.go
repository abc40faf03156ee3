// Package voxel reconstructs a closed voxel solid from a filtered 3D point
// set and computes its volume against an estimated floor plane.
//
// The interior fill is a single-axis ray cast toward decreasing Z, a
// star-convexity-from-below approximation chosen for speed; strongly concave
// shapes fill as their from-below hull.
package voxel

import (
	"math"

	"github.com/golang/geo/r3"
)

// VoxelCoords stores voxel coordinates in grid axes, anchored at the point
// cloud's bounding-box minimum.
type VoxelCoords struct {
	I, J, K int64
}

// ColumnKey identifies the (x,y) column a voxel belongs to.
type ColumnKey struct {
	I, J int64
}

// Column returns the column the voxel belongs to.
func (c VoxelCoords) Column() ColumnKey {
	return ColumnKey{I: c.I, J: c.J}
}

// GetVoxelCoordinates computes the voxel coordinates of a point, given the
// grid anchor and voxel edge length.
func GetVoxelCoordinates(pt, ptMin r3.Vector, voxelSize float64) VoxelCoords {
	return VoxelCoords{
		I: int64(math.Floor((pt.X - ptMin.X) / voxelSize)),
		J: int64(math.Floor((pt.Y - ptMin.Y) / voxelSize)),
		K: int64(math.Floor((pt.Z - ptMin.Z) / voxelSize)),
	}
}

// Set is a set of voxel keys with no duplicates.
type Set struct {
	voxels map[VoxelCoords]struct{}
}

// NewSet returns an empty voxel set.
func NewSet() *Set {
	return &Set{voxels: map[VoxelCoords]struct{}{}}
}

// Add inserts the voxel into the set.
func (s *Set) Add(c VoxelCoords) {
	s.voxels[c] = struct{}{}
}

// Contains reports whether the voxel is in the set.
func (s *Set) Contains(c VoxelCoords) bool {
	_, ok := s.voxels[c]
	return ok
}

// Size returns the number of voxels in the set.
func (s *Set) Size() int {
	return len(s.voxels)
}

// Iterate calls fn for every voxel in the set until fn returns false.
func (s *Set) Iterate(fn func(c VoxelCoords) bool) {
	for c := range s.voxels {
		if !fn(c) {
			return
		}
	}
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	out := &Set{voxels: make(map[VoxelCoords]struct{}, len(s.voxels))}
	for c := range s.voxels {
		out.voxels[c] = struct{}{}
	}
	return out
}

// Merge adds all voxels of other into the set.
func (s *Set) Merge(other *Set) {
	for c := range other.voxels {
		s.voxels[c] = struct{}{}
	}
}

// Bounds returns the minimum and maximum voxel coordinates present. ok is
// false for an empty set.
func (s *Set) Bounds() (minC, maxC VoxelCoords, ok bool) {
	first := true
	for c := range s.voxels {
		if first {
			minC, maxC = c, c
			first = false
			continue
		}
		if c.I < minC.I {
			minC.I = c.I
		}
		if c.J < minC.J {
			minC.J = c.J
		}
		if c.K < minC.K {
			minC.K = c.K
		}
		if c.I > maxC.I {
			maxC.I = c.I
		}
		if c.J > maxC.J {
			maxC.J = c.J
		}
		if c.K > maxC.K {
			maxC.K = c.K
		}
	}
	return minC, maxC, !first
}

// adjacent26 returns the 26-connected neighborhood of the voxel.
func adjacent26(c VoxelCoords) []VoxelCoords {
	neighbors := make([]VoxelCoords, 0, 26)
	for di := int64(-1); di <= 1; di++ {
		for dj := int64(-1); dj <= 1; dj++ {
			for dk := int64(-1); dk <= 1; dk++ {
				if di == 0 && dj == 0 && dk == 0 {
					continue
				}
				neighbors = append(neighbors, VoxelCoords{I: c.I + di, J: c.J + dj, K: c.K + dk})
			}
		}
	}
	return neighbors
}

// Volume returns the physical volume represented by the set.
func Volume(set *Set, voxelSize float64) float64 {
	if set == nil {
		return 0
	}
	return float64(set.Size()) * voxelSize * voxelSize * voxelSize
}
