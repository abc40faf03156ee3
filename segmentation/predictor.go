package segmentation

import (
	"context"
	"image"

	"github.com/pkg/errors"
)

// ErrPredictorFailure is when the external mask predictor returns no usable
// candidate for a prompt.
var ErrPredictorFailure = errors.New("mask predictor returned no usable candidate")

// Modality identifies which source image of a capture a mask or embedding
// belongs to. A capture produces a depth-derived image and, when available, a
// color image; the two are segmented independently.
type Modality int

const (
	// ModalityDepth is the image rendered from the depth raster.
	ModalityDepth Modality = iota
	// ModalityColor is the color image captured alongside the depth raster.
	ModalityColor
)

// ImageEmbedding is an opaque, precomputed embedding of one modality image.
// It is produced once per image by the predictor's encoder and reused across
// prompts.
type ImageEmbedding struct {
	Modality Modality
	Width    int
	Height   int
	Data     []byte
}

// PromptKind enumerates the supported prompt shapes.
type PromptKind int

const (
	// PromptPoint is a single labeled point.
	PromptPoint PromptKind = iota
	// PromptMultiPoint is several labeled points.
	PromptMultiPoint
	// PromptBox is a bounding box.
	PromptBox
)

// Prompt is one user segmentation hint. Labels are 1 for foreground and 0
// for background points.
type Prompt struct {
	Kind   PromptKind
	Points []image.Point
	Labels []int
	Box    image.Rectangle
}

// NewPointPrompt returns a single-point prompt.
func NewPointPrompt(p image.Point, label int) Prompt {
	return Prompt{Kind: PromptPoint, Points: []image.Point{p}, Labels: []int{label}}
}

// NewMultiPointPrompt returns a prompt of several labeled points.
func NewMultiPointPrompt(points []image.Point, labels []int) Prompt {
	return Prompt{Kind: PromptMultiPoint, Points: points, Labels: labels}
}

// NewBoxPrompt returns a bounding-box prompt.
func NewBoxPrompt(box image.Rectangle) Prompt {
	return Prompt{Kind: PromptBox, Box: box}
}

// MaskCandidate is one scored mask raster returned by the predictor, as
// per-pixel logits at the given resolution.
type MaskCandidate struct {
	Logits     []float32
	Width      int
	Height     int
	Confidence float64
}

// Predictor is the external mask prediction model. Given a precomputed image
// embedding and a prompt it returns one or more candidate masks with
// confidence scores.
type Predictor interface {
	Predict(ctx context.Context, embedding ImageEmbedding, prompt Prompt) ([]MaskCandidate, error)
}

// logitThreshold is the fixed cutoff for binarizing candidate logits.
const logitThreshold = 0.0

// bestCandidateMask picks the highest-confidence candidate and binarizes it.
func bestCandidateMask(candidates []MaskCandidate) (*Mask, error) {
	if len(candidates) == 0 {
		return nil, ErrPredictorFailure
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	if best.Width <= 0 || best.Height <= 0 || len(best.Logits) != best.Width*best.Height {
		return nil, errors.Wrapf(ErrPredictorFailure, "candidate raster %dx%d with %d logits",
			best.Width, best.Height, len(best.Logits))
	}
	m := NewMask(best.Width, best.Height)
	for i, v := range best.Logits {
		if v > logitThreshold {
			m.bits[i] = true
		}
	}
	return m, nil
}
