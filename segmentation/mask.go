// Package segmentation builds and maintains binary region masks from user
// prompts against an external mask predictor, and reconciles masks produced
// from two image modalities of the same capture.
package segmentation

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Mask is a dense 2D boolean grid aligned to a source image's pixel grid.
type Mask struct {
	width  int
	height int
	bits   []bool
}

// NewMask returns an empty mask of the given dimensions.
func NewMask(width, height int) *Mask {
	return &Mask{width: width, height: height, bits: make([]bool, width*height)}
}

// Width returns the mask width in pixels.
func (m *Mask) Width() int { return m.width }

// Height returns the mask height in pixels.
func (m *Mask) Height() int { return m.height }

// Get returns whether the pixel is selected. Out-of-bounds reads are false.
func (m *Mask) Get(x, y int) bool {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	return m.bits[y*m.width+x]
}

// Set marks the pixel. Out-of-bounds writes are dropped.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return
	}
	m.bits[y*m.width+x] = v
}

// Count returns the number of selected pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.width, m.height)
	copy(out.bits, m.bits)
	return out
}

func sameDims(a, b *Mask) error {
	if a.width != b.width || a.height != b.height {
		return errors.Errorf("mask dimensions don't match (%d,%d) != (%d,%d)",
			a.width, a.height, b.width, b.height)
	}
	return nil
}

// Union returns a mask selecting pixels present in either input.
func Union(a, b *Mask) (*Mask, error) {
	if err := sameDims(a, b); err != nil {
		return nil, err
	}
	out := a.Clone()
	for i, v := range b.bits {
		if v {
			out.bits[i] = true
		}
	}
	return out, nil
}

// Intersect returns a mask selecting pixels present in both inputs.
func Intersect(a, b *Mask) (*Mask, error) {
	if err := sameDims(a, b); err != nil {
		return nil, err
	}
	out := NewMask(a.width, a.height)
	for i := range out.bits {
		out.bits[i] = a.bits[i] && b.bits[i]
	}
	return out, nil
}

// Subtract returns a mask selecting pixels of a not present in b.
func Subtract(a, b *Mask) (*Mask, error) {
	if err := sameDims(a, b); err != nil {
		return nil, err
	}
	out := NewMask(a.width, a.height)
	for i := range out.bits {
		out.bits[i] = a.bits[i] && !b.bits[i]
	}
	return out, nil
}

// ZeroEdgeRows clears the top and bottom frac of rows in place. Depth
// captures tend to have edge artifacts there.
func (m *Mask) ZeroEdgeRows(frac float64) {
	if frac <= 0 {
		return
	}
	margin := int(float64(m.height) * frac)
	for y := 0; y < margin && y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			m.bits[y*m.width+x] = false
		}
	}
	for y := m.height - margin; y < m.height; y++ {
		if y < 0 {
			continue
		}
		for x := 0; x < m.width; x++ {
			m.bits[y*m.width+x] = false
		}
	}
}

// resampleThreshold re-binarizes interpolated gray values at ~50% of max.
const resampleThreshold = 128

// ResampleTo returns the mask resampled to the target resolution. The mask is
// rendered to a grayscale raster, linearly resampled, and re-binarized at
// half intensity.
func (m *Mask) ResampleTo(width, height int) *Mask {
	if width == m.width && height == m.height {
		return m.Clone()
	}
	gray := image.NewGray(image.Rect(0, 0, m.width, m.height))
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if m.bits[y*m.width+x] {
				gray.Pix[y*gray.Stride+x] = 255
			}
		}
	}
	resized := imaging.Resize(gray, width, height, imaging.Linear)
	out := NewMask(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if resized.NRGBAAt(x, y).R >= resampleThreshold {
				out.bits[y*width+x] = true
			}
		}
	}
	return out
}
