package voxel

import (
	"context"
	"math"
	"sync"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"

	"github.com/endev-llc/pocketscale/pointcloud"
	"github.com/endev-llc/pocketscale/utils"
)

// ReconstructConfig specifies the parameters for voxel reconstruction.
type ReconstructConfig struct {
	// TargetDensity is the desired number of points per voxel; the voxel
	// edge length adapts to the capture density to meet it.
	TargetDensity float64
}

// DefaultReconstructConfig returns the config used by the capture pipeline.
func DefaultReconstructConfig() ReconstructConfig {
	return ReconstructConfig{TargetDensity: 1.0}
}

// minExtent keeps the bounding-box volume non-zero for degenerate (flat or
// collinear) clouds.
const minExtent = 1e-6

// Grid is the result of one reconstruction pass: a surface shell and the
// filled solid, in a regular grid anchored at the cloud's bounding-box
// minimum.
type Grid struct {
	VoxelSize float64
	Origin    r3.Vector

	// Surface is the dilated shell of point-occupied voxels.
	Surface *Set
	// Solid is the surface plus the ray-cast interior fill.
	Solid *Set

	// columnMin is the lowest K actually observed in the input points for
	// each occupied column, before dilation. Cropping never keeps voxels in
	// front of it.
	columnMin map[ColumnKey]int64
}

// Empty reports whether the grid holds no voxels.
func (g *Grid) Empty() bool {
	return g.Solid == nil || g.Solid.Size() == 0
}

// GridCoords converts a camera-frame point to continuous grid coordinates.
func (g *Grid) GridCoords(p r3.Vector) (x, y, z float64) {
	return (p.X - g.Origin.X) / g.VoxelSize,
		(p.Y - g.Origin.Y) / g.VoxelSize,
		(p.Z - g.Origin.Z) / g.VoxelSize
}

// VoxelCenters returns the camera-frame centers of the given set's voxels,
// for export to a viewer.
func (g *Grid) VoxelCenters(set *Set) *pointcloud.Cloud {
	cloud := pointcloud.NewWithPrealloc(set.Size())
	set.Iterate(func(c VoxelCoords) bool {
		cloud.Add(r3.Vector{
			X: g.Origin.X + (float64(c.I)+0.5)*g.VoxelSize,
			Y: g.Origin.Y + (float64(c.J)+0.5)*g.VoxelSize,
			Z: g.Origin.Z + (float64(c.K)+0.5)*g.VoxelSize,
		})
		return true
	})
	return cloud
}

// Reconstruct converts a point cloud into a closed voxel solid. The voxel
// edge length adapts to the capture density. If contents is non-nil and
// non-empty, the result is restricted to the (x,y) columns its points occupy.
// An empty input yields an empty grid, not an error.
func Reconstruct(
	ctx context.Context,
	cloud *pointcloud.Cloud,
	contents *pointcloud.Cloud,
	cfg ReconstructConfig,
	logger golog.Logger,
) (*Grid, error) {
	if cloud == nil || cloud.Size() == 0 {
		return &Grid{Surface: NewSet(), Solid: NewSet(), columnMin: map[ColumnKey]int64{}}, nil
	}

	meta := cloud.MetaData()
	dx := math.Max(meta.MaxX-meta.MinX, minExtent)
	dy := math.Max(meta.MaxY-meta.MinY, minExtent)
	dz := math.Max(meta.MaxZ-meta.MinZ, minExtent)
	pointDensity := float64(cloud.Size()) / (dx * dy * dz)
	voxelSize := math.Cbrt(cfg.TargetDensity / pointDensity)

	g := &Grid{
		VoxelSize: voxelSize,
		Origin:    meta.Min(),
		columnMin: map[ColumnKey]int64{},
	}

	// surface detection
	occupied := NewSet()
	cloud.Iterate(func(p r3.Vector) bool {
		c := GetVoxelCoordinates(p, g.Origin, voxelSize)
		occupied.Add(c)
		if cur, ok := g.columnMin[c.Column()]; !ok || c.K < cur {
			g.columnMin[c.Column()] = c.K
		}
		return true
	})

	// one dilation pass closes sparsity gaps and guarantees a closed shell
	// for the ray cast
	surface := occupied.Clone()
	occupied.Iterate(func(c VoxelCoords) bool {
		for _, n := range adjacent26(c) {
			surface.Add(n)
		}
		return true
	})
	g.Surface = surface

	interior, err := fillInterior(ctx, surface)
	if err != nil {
		return nil, err
	}
	solid := surface.Clone()
	solid.Merge(interior)
	g.Solid = solid

	if contents != nil && contents.Size() > 0 {
		g.restrictToColumns(contents)
	}

	logger.Debugw("reconstructed voxel grid",
		"points", cloud.Size(),
		"voxelSize", voxelSize,
		"surface", g.Surface.Size(),
		"solid", g.Solid.Size())
	return g, nil
}

// fillInterior marks every empty cell strictly inside the surface bounding
// box whose -Z ray hits a surface voxel before leaving the box. Candidate
// cells are independent, so they are evaluated in parallel against the
// immutable surface set, each worker accumulating into its own partial set.
func fillInterior(ctx context.Context, surface *Set) (*Set, error) {
	interior := NewSet()
	minC, maxC, ok := surface.Bounds()
	if !ok {
		return interior, nil
	}

	var candidates []VoxelCoords
	for i := minC.I; i <= maxC.I; i++ {
		for j := minC.J; j <= maxC.J; j++ {
			for k := minC.K; k <= maxC.K; k++ {
				c := VoxelCoords{I: i, J: j, K: k}
				if !surface.Contains(c) {
					candidates = append(candidates, c)
				}
			}
		}
	}

	var mu sync.Mutex
	partials := make([]*Set, 0)
	err := utils.GroupWorkParallel(
		ctx,
		len(candidates),
		func(numGroups int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			partial := NewSet()
			return func(memberNum, workNum int) {
					c := candidates[workNum]
					for k := c.K - 1; k >= minC.K; k-- {
						if surface.Contains(VoxelCoords{I: c.I, J: c.J, K: k}) {
							partial.Add(c)
							break
						}
					}
				}, func() {
					mu.Lock()
					partials = append(partials, partial)
					mu.Unlock()
				}
		})
	if err != nil {
		return nil, err
	}
	for _, p := range partials {
		interior.Merge(p)
	}
	return interior, nil
}

// restrictToColumns limits the grid to the (x,y) columns occupied by the
// given point set. The restriction is column-wise, not a full 3D
// intersection.
func (g *Grid) restrictToColumns(contents *pointcloud.Cloud) {
	columns := map[ColumnKey]struct{}{}
	contents.Iterate(func(p r3.Vector) bool {
		columns[GetVoxelCoordinates(p, g.Origin, g.VoxelSize).Column()] = struct{}{}
		return true
	})

	filter := func(set *Set) *Set {
		out := NewSet()
		set.Iterate(func(c VoxelCoords) bool {
			if _, ok := columns[c.Column()]; ok {
				out.Add(c)
			}
			return true
		})
		return out
	}
	g.Surface = filter(g.Surface)
	g.Solid = filter(g.Solid)
	for col := range g.columnMin {
		if _, ok := columns[col]; !ok {
			delete(g.columnMin, col)
		}
	}
}
