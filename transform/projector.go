package transform

import (
	"math"

	"github.com/golang/geo/r3"
)

// CleanSamples drops any sample whose depth is non-finite or not strictly
// positive. The sensor reports such values for pixels it could not resolve.
func CleanSamples(samples []DepthSample) []DepthSample {
	out := make([]DepthSample, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.Depth) || math.IsInf(s.Depth, 0) || s.Depth <= 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ProjectSamples projects a batch of depth samples into 3D points in the
// camera frame. The intrinsics are rescaled to the depth map resolution
// first.
//
// The X and Y back-projection uses a single reference depth for the whole
// batch, the minimum depth observed, on the assumption that the object of
// interest is the closest surface in frame. Each point keeps its own measured
// depth as Z.
func ProjectSamples(samples []DepthSample, params *CameraIntrinsics) ([]r3.Vector, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	scaled := params.ScaledToDepthMap()

	zRef := samples[0].Depth
	for _, s := range samples[1:] {
		if s.Depth < zRef {
			zRef = s.Depth
		}
	}

	points := make([]r3.Vector, 0, len(samples))
	for _, s := range samples {
		x := (float64(s.PixelX) - scaled.Ppx) * zRef / scaled.Fx
		y := (float64(s.PixelY) - scaled.Ppy) * zRef / scaled.Fy
		points = append(points, r3.Vector{X: x, Y: y, Z: s.Depth})
	}
	return points, nil
}
