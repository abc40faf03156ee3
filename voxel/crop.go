package voxel

// CropToFloor returns the subset of set that lies strictly before the floor
// plane. A voxel in a column with observed points additionally must not sit
// in front of the lowest z actually observed there; this guards against a
// plane fit that dips under the real object re-admitting phantom voxels.
// Cropping the result again with the same plane yields an identical set.
func (g *Grid) CropToFloor(set *Set, plane FloorPlane) *Set {
	out := NewSet()
	set.Iterate(func(c VoxelCoords) bool {
		if minK, ok := g.columnMin[c.Column()]; ok && c.K < minK {
			return true
		}
		centerZ := float64(c.K) + 0.5
		if centerZ < plane.ZAt(float64(c.I)+0.5, float64(c.J)+0.5) {
			out.Add(c)
		}
		return true
	})
	return out
}
