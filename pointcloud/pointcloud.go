// Package pointcloud defines a point cloud with bounding-box metadata and
// provides a basic slice-backed implementation for one.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData creates a new MetaData.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the meta data with the new point.
func (meta *MetaData) Merge(v r3.Vector) {
	if v.X > meta.MaxX {
		meta.MaxX = v.X
	}
	if v.Y > meta.MaxY {
		meta.MaxY = v.Y
	}
	if v.Z > meta.MaxZ {
		meta.MaxZ = v.Z
	}
	if v.X < meta.MinX {
		meta.MinX = v.X
	}
	if v.Y < meta.MinY {
		meta.MinY = v.Y
	}
	if v.Z < meta.MinZ {
		meta.MinZ = v.Z
	}
}

// BoundingBoxVolume returns the volume of the axis-aligned bounding box of
// all merged points, zero for fewer than two distinct points.
func (meta *MetaData) BoundingBoxVolume() float64 {
	if meta.MaxX < meta.MinX {
		return 0
	}
	return (meta.MaxX - meta.MinX) * (meta.MaxY - meta.MinY) * (meta.MaxZ - meta.MinZ)
}

// Min returns the minimum corner of the bounding box.
func (meta *MetaData) Min() r3.Vector {
	return r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ}
}

// Max returns the maximum corner of the bounding box.
func (meta *MetaData) Max() r3.Vector {
	return r3.Vector{X: meta.MaxX, Y: meta.MaxY, Z: meta.MaxZ}
}

// Cloud is a container of 3D points scoped to one reconstruction pass.
type Cloud struct {
	points []r3.Vector
	meta   MetaData
}

// New returns an empty Cloud.
func New() *Cloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty, preallocated Cloud.
func NewWithPrealloc(size int) *Cloud {
	return &Cloud{
		points: make([]r3.Vector, 0, size),
		meta:   NewMetaData(),
	}
}

// NewFromVectors returns a Cloud containing the given points.
func NewFromVectors(pts []r3.Vector) *Cloud {
	cloud := NewWithPrealloc(len(pts))
	for _, p := range pts {
		cloud.Add(p)
	}
	return cloud
}

// Add places the given point in the cloud.
func (cloud *Cloud) Add(p r3.Vector) {
	cloud.points = append(cloud.points, p)
	cloud.meta.Merge(p)
}

// Size returns the number of points in the cloud.
func (cloud *Cloud) Size() int {
	return len(cloud.points)
}

// MetaData returns the bounding-box meta data.
func (cloud *Cloud) MetaData() MetaData {
	return cloud.meta
}

// Points returns the backing point slice. Callers must not mutate it.
func (cloud *Cloud) Points() []r3.Vector {
	return cloud.points
}

// Iterate iterates over all points in the cloud and calls the given function
// for each point. If the supplied function returns false, iteration stops.
func (cloud *Cloud) Iterate(fn func(p r3.Vector) bool) {
	for _, p := range cloud.points {
		if !fn(p) {
			return
		}
	}
}
