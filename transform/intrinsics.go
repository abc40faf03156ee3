// Package transform converts raw depth-sensor samples into 3D points in a
// camera-centered frame, using pinhole camera intrinsics.
package transform

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intrinsics are not defined properly.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// DepthSample is a single sensor reading: a pixel location on the depth map
// and the measured distance in meters.
type DepthSample struct {
	PixelX int
	PixelY int
	Depth  float64
}

// CameraIntrinsics holds the parameters of the pinhole model used to project
// depth samples into 3D. Focal lengths and principal point are calibrated at
// the reference resolution; the depth map the samples come from may be at a
// different resolution, so intrinsics are rescaled before use.
type CameraIntrinsics struct {
	Fx  float64 `json:"fx"`
	Fy  float64 `json:"fy"`
	Ppx float64 `json:"ppx"`
	Ppy float64 `json:"ppy"`

	// resolution the intrinsics were calibrated at
	RefWidth  int `json:"ref_width_px"`
	RefHeight int `json:"ref_height_px"`

	// resolution of the depth map actually captured
	Width  int `json:"width_px"`
	Height int `json:"height_px"`
}

// CheckValid checks if the fields for CameraIntrinsics have valid inputs.
func (params *CameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid depth map size (%#v, %#v)", params.Width, params.Height))
	}
	if params.RefWidth <= 0 || params.RefHeight <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid reference size (%#v, %#v)", params.RefWidth, params.RefHeight))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("invalid focal length Fy = %#v", params.Fy))
	}
	return nil
}

// ScaledToDepthMap returns a copy of the intrinsics rescaled from the
// reference resolution to the resolution of the captured depth map.
func (params CameraIntrinsics) ScaledToDepthMap() CameraIntrinsics {
	sx := float64(params.Width) / float64(params.RefWidth)
	sy := float64(params.Height) / float64(params.RefHeight)
	out := params
	out.Fx *= sx
	out.Fy *= sy
	out.Ppx *= sx
	out.Ppy *= sy
	out.RefWidth = params.Width
	out.RefHeight = params.Height
	return out
}
