package voxel

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateGeometry is when too few or collinear points make a stage's
// geometry underdetermined. Callers treat it as non-fatal and skip the
// dependent stage.
var ErrDegenerateGeometry = errors.New("degenerate geometry")

// FloorPlane holds the coefficients of z = A*x + B*y + C in grid
// coordinates.
type FloorPlane struct {
	A, B, C float64
}

// ZAt returns the plane's grid z at the given grid column position.
func (p FloorPlane) ZAt(x, y float64) float64 {
	return p.A*x + p.B*y + p.C
}

// FloorConfig specifies the pre-filters applied to reference points before
// the plane fit. Distances are in grid (voxel) units.
type FloorConfig struct {
	// DepthPercentile anchors the depth-outlier filter; points closer than
	// the percentile depth minus DepthSlack are dropped as foreground that
	// leaked into the background selection.
	DepthPercentile float64
	DepthSlack      float64
	// MaxGradient drops points whose depth difference to any 8-neighbor
	// column, per unit of neighbor distance, exceeds it; keeps only locally
	// flat samples.
	MaxGradient float64
}

// DefaultFloorConfig returns the config used by the capture pipeline.
func DefaultFloorConfig() FloorConfig {
	return FloorConfig{
		DepthPercentile: 0.25,
		DepthSlack:      1.0,
		MaxGradient:     1.0,
	}
}

// FitFloor fits the reference plane to explicit background-surface points,
// given in the camera frame. Points survive a depth-outlier filter and a
// local-gradient filter before an ordinary least-squares fit.
func (g *Grid) FitFloor(background []r3.Vector, cfg FloorConfig) (FloorPlane, error) {
	if g.Empty() {
		return FloorPlane{}, errors.Wrap(ErrDegenerateGeometry, "empty reconstruction")
	}
	if len(background) < 3 {
		return FloorPlane{}, errors.Wrapf(ErrDegenerateGeometry, "%d background points", len(background))
	}

	pts := make([]r3.Vector, 0, len(background))
	for _, p := range background {
		x, y, z := g.GridCoords(p)
		pts = append(pts, r3.Vector{X: x, Y: y, Z: z})
	}
	pts = filterDepthOutliers(pts, cfg)
	pts = filterByLocalGradient(pts, cfg)
	if len(pts) < 3 {
		return FloorPlane{}, errors.Wrapf(ErrDegenerateGeometry, "%d background points after filtering", len(pts))
	}
	return fitPlaneLeastSquares(pts)
}

// FitFloorFromSurface estimates the floor without background points, from
// the 2D convex hull of the solid's own per-column top-surface maxima. The
// hull columns are the object's outline, which rests on the floor.
func (g *Grid) FitFloorFromSurface() (FloorPlane, error) {
	if g.Empty() {
		return FloorPlane{}, errors.Wrap(ErrDegenerateGeometry, "empty reconstruction")
	}
	columnMax := map[ColumnKey]int64{}
	g.Surface.Iterate(func(c VoxelCoords) bool {
		if cur, ok := columnMax[c.Column()]; !ok || c.K > cur {
			columnMax[c.Column()] = c.K
		}
		return true
	})
	tops := make([]r3.Vector, 0, len(columnMax))
	for col, k := range columnMax {
		tops = append(tops, r3.Vector{
			X: float64(col.I) + 0.5,
			Y: float64(col.J) + 0.5,
			Z: float64(k) + 0.5,
		})
	}
	hull := convexHull2D(tops)
	if len(hull) < 3 {
		return FloorPlane{}, errors.Wrapf(ErrDegenerateGeometry, "%d hull points", len(hull))
	}
	return fitPlaneLeastSquares(hull)
}

func filterDepthOutliers(pts []r3.Vector, cfg FloorConfig) []r3.Vector {
	depths := make([]float64, len(pts))
	for i, p := range pts {
		depths[i] = p.Z
	}
	sort.Float64s(depths)
	idx := int(cfg.DepthPercentile * float64(len(depths)-1))
	cutoff := depths[idx] - cfg.DepthSlack

	out := pts[:0]
	for _, p := range pts {
		if p.Z >= cutoff {
			out = append(out, p)
		}
	}
	return out
}

func filterByLocalGradient(pts []r3.Vector, cfg FloorConfig) []r3.Vector {
	type colStats struct {
		sum   float64
		count int
	}
	cols := map[ColumnKey]*colStats{}
	colOf := func(p r3.Vector) ColumnKey {
		return ColumnKey{I: int64(math.Floor(p.X)), J: int64(math.Floor(p.Y))}
	}
	for _, p := range pts {
		col := colOf(p)
		st, ok := cols[col]
		if !ok {
			st = &colStats{}
			cols[col] = st
		}
		st.sum += p.Z
		st.count++
	}

	out := pts[:0]
	for _, p := range pts {
		col := colOf(p)
		maxGrad := 0.0
		for di := int64(-1); di <= 1; di++ {
			for dj := int64(-1); dj <= 1; dj++ {
				if di == 0 && dj == 0 {
					continue
				}
				st, ok := cols[ColumnKey{I: col.I + di, J: col.J + dj}]
				if !ok {
					continue
				}
				dist := math.Hypot(float64(di), float64(dj))
				grad := math.Abs(p.Z-st.sum/float64(st.count)) / dist
				if grad > maxGrad {
					maxGrad = grad
				}
			}
		}
		if maxGrad <= cfg.MaxGradient {
			out = append(out, p)
		}
	}
	return out
}

// fitPlaneLeastSquares solves the closed-form normal equations for
// z = a*x + b*y + c on centered coordinates.
func fitPlaneLeastSquares(pts []r3.Vector) (FloorPlane, error) {
	if len(pts) < 3 {
		return FloorPlane{}, errors.Wrapf(ErrDegenerateGeometry, "%d fit points", len(pts))
	}
	n := float64(len(pts))
	var xBar, yBar, zBar float64
	for _, p := range pts {
		xBar += p.X
		yBar += p.Y
		zBar += p.Z
	}
	xBar /= n
	yBar /= n
	zBar /= n

	var sxx, sxy, syy, sxz, syz float64
	for _, p := range pts {
		cx, cy, cz := p.X-xBar, p.Y-yBar, p.Z-zBar
		sxx += cx * cx
		sxy += cx * cy
		syy += cy * cy
		sxz += cx * cz
		syz += cy * cz
	}

	normal := mat.NewDense(2, 2, []float64{sxx, sxy, sxy, syy})
	rhs := mat.NewVecDense(2, []float64{sxz, syz})
	var sol mat.VecDense
	if err := sol.SolveVec(normal, rhs); err != nil {
		return FloorPlane{}, errors.Wrap(ErrDegenerateGeometry, "singular normal equations (collinear points)")
	}
	a, b := sol.AtVec(0), sol.AtVec(1)
	return FloorPlane{A: a, B: b, C: zBar - a*xBar - b*yBar}, nil
}

// convexHull2D computes the convex hull of the points' (x,y) projection with
// the monotone chain algorithm, keeping each hull vertex's z.
func convexHull2D(pts []r3.Vector) []r3.Vector {
	if len(pts) < 3 {
		return pts
	}
	sorted := make([]r3.Vector, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})
	cross := func(o, a, b r3.Vector) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}
	var lower []r3.Vector
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	var upper []r3.Vector
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}
