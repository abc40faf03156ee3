// Package reconstruction orchestrates one capture session: segmentation,
// projection, voxel reconstruction, floor estimation and volume computation.
// All state is scoped to the session; loading a new capture discards
// everything from the previous one.
package reconstruction

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/endev-llc/pocketscale/pointcloud"
	"github.com/endev-llc/pocketscale/segmentation"
	"github.com/endev-llc/pocketscale/transform"
	"github.com/endev-llc/pocketscale/voxel"
)

// ErrMissingInput is when a required input for a pipeline stage is not
// available. Callers treat it as non-fatal and skip the stage.
var ErrMissingInput = errors.New("missing input for reconstruction stage")

// Result is one consistent reconstruction snapshot. It is replaced wholesale
// whenever cropping is toggled, never mutated piecewise.
type Result struct {
	Voxels    *voxel.Set
	VoxelSize float64
	Volume    float64
}

func newResult(set *voxel.Set, voxelSize float64) *Result {
	return &Result{
		Voxels:    set,
		VoxelSize: voxelSize,
		Volume:    voxel.Volume(set, voxelSize),
	}
}

// Config collects the tunables of the pipeline stages.
type Config struct {
	Reconstruct    voxel.ReconstructConfig
	Floor          voxel.FloorConfig
	EdgeMarginFrac float64
}

// DefaultConfig returns the config used by the capture pipeline.
func DefaultConfig() Config {
	return Config{
		Reconstruct:    voxel.DefaultReconstructConfig(),
		Floor:          voxel.DefaultFloorConfig(),
		EdgeMarginFrac: 0.05,
	}
}

// Session drives one reconstruction pass over one depth capture.
type Session struct {
	id        uuid.UUID
	cfg       Config
	predictor segmentation.Predictor
	logger    golog.Logger

	samples    []transform.DepthSample
	intrinsics *transform.CameraIntrinsics
	compositor *segmentation.Compositor

	primary    *pointcloud.Cloud
	contents   *pointcloud.Cloud
	background *pointcloud.Cloud

	grid    *voxel.Grid
	base    *Result
	current *Result
}

// NewSession returns a session ready to load a capture.
func NewSession(predictor segmentation.Predictor, cfg Config, logger golog.Logger) *Session {
	return &Session{
		id:        uuid.New(),
		cfg:       cfg,
		predictor: predictor,
		logger:    logger,
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Reset discards all masks, point sets and voxel sets of the current
// capture.
func (s *Session) Reset() {
	s.samples = nil
	s.intrinsics = nil
	s.compositor = nil
	s.primary = nil
	s.contents = nil
	s.background = nil
	s.grid = nil
	s.base = nil
	s.current = nil
}

// LoadCapture starts a new pass over the given capture, discarding all state
// of any prior one. Samples with non-finite or non-positive depth are
// dropped. The embeddings are the per-modality image embeddings the mask
// predictor will be prompted against.
func (s *Session) LoadCapture(
	samples []transform.DepthSample,
	intrinsics *transform.CameraIntrinsics,
	embeddings map[segmentation.Modality]segmentation.ImageEmbedding,
) error {
	if err := intrinsics.CheckValid(); err != nil {
		return err
	}
	s.Reset()
	s.samples = transform.CleanSamples(samples)
	s.intrinsics = intrinsics
	s.compositor = segmentation.NewCompositor(s.predictor, embeddings, s.logger)
	s.logger.Debugw("loaded capture", "session", s.id, "samples", len(s.samples))
	return nil
}

// Compositor exposes the capture's mask compositor, or nil before a capture
// is loaded.
func (s *Session) Compositor() *segmentation.Compositor {
	return s.compositor
}

// SelectRegions projects the capture once and partitions the points by the
// given masks. The primary mask is expanded with the contents mask first so
// the kept region covers any nested selection. Masks may be at any
// resolution; they are resampled to the depth map. contents and background
// may be nil.
func (s *Session) SelectRegions(primary, contents, background *segmentation.Mask) error {
	if s.intrinsics == nil {
		return errors.Wrap(ErrMissingInput, "no capture loaded")
	}
	if primary == nil {
		return errors.Wrap(ErrMissingInput, "no primary selection")
	}
	points, err := transform.ProjectSamples(s.samples, s.intrinsics)
	if err != nil {
		return err
	}

	w, h := s.intrinsics.Width, s.intrinsics.Height
	if contents != nil {
		expanded, err := segmentation.Union(primary.ResampleTo(w, h), contents.ResampleTo(w, h))
		if err != nil {
			return err
		}
		primary = expanded
	} else {
		primary = primary.ResampleTo(w, h)
	}
	var contentsMask, backgroundMask *segmentation.Mask
	if contents != nil {
		contentsMask = contents.ResampleTo(w, h)
	}
	if background != nil {
		backgroundMask = background.ResampleTo(w, h)
	}

	s.primary = pointcloud.New()
	s.contents = pointcloud.New()
	s.background = pointcloud.New()
	for i, sample := range s.samples {
		p := points[i]
		if primary.Get(sample.PixelX, sample.PixelY) {
			s.primary.Add(p)
		}
		if contentsMask != nil && contentsMask.Get(sample.PixelX, sample.PixelY) {
			s.contents.Add(p)
		}
		if backgroundMask != nil && backgroundMask.Get(sample.PixelX, sample.PixelY) {
			s.background.Add(p)
		}
	}
	s.logger.Debugw("selected regions",
		"primary", s.primary.Size(),
		"contents", s.contents.Size(),
		"background", s.background.Size())
	return nil
}

// SelectRegionsFromCompositor derives the region masks from the capture's
// accumulated prompt history: the primary composite expanded with contents,
// and the background reconciled across both modalities.
func (s *Session) SelectRegionsFromCompositor() error {
	if s.compositor == nil {
		return errors.Wrap(ErrMissingInput, "no capture loaded")
	}
	primary, err := s.compositor.PrimaryWithContents(segmentation.ModalityDepth)
	if err != nil {
		return errors.Wrap(ErrMissingInput, err.Error())
	}
	contents := s.compositor.Composite(segmentation.CategoryContents, segmentation.ModalityDepth)

	var background *segmentation.Mask
	bgDepth := s.compositor.Composite(segmentation.CategoryBackground, segmentation.ModalityDepth)
	bgColor := s.compositor.Composite(segmentation.CategoryBackground, segmentation.ModalityColor)
	if bgDepth != nil || bgColor != nil {
		cfg := segmentation.DefaultReconcileConfig(s.intrinsics.Width, s.intrinsics.Height)
		cfg.EdgeMarginFrac = s.cfg.EdgeMarginFrac
		background, err = segmentation.ReconcileBackground(bgDepth, bgColor, contents, cfg)
		if err != nil {
			return err
		}
	}
	return s.SelectRegions(primary, contents, background)
}

// Reconstruct builds the voxel solid from the selected primary region,
// restricted to the contents columns when a contents selection exists. The
// result snapshot it returns is also retained as the uncropped base for
// floor cropping.
func (s *Session) Reconstruct(ctx context.Context) (*Result, error) {
	if s.primary == nil {
		return nil, errors.Wrap(ErrMissingInput, "regions have not been selected")
	}
	var contents *pointcloud.Cloud
	if s.contents != nil && s.contents.Size() > 0 {
		contents = s.contents
	}
	grid, err := voxel.Reconstruct(ctx, s.primary, contents, s.cfg.Reconstruct, s.logger)
	if err != nil {
		return nil, err
	}
	s.grid = grid
	s.base = newResult(grid.Solid, grid.VoxelSize)
	s.current = s.base
	return s.current, nil
}

// ApplyFloorCrop estimates the floor plane and replaces the current result
// with the cropped snapshot. Explicit background points are preferred; with
// none selected the floor is estimated from the object's own top surface. A
// degenerate fit is non-fatal: the current (uncropped) result is kept and
// returned along with the error.
func (s *Session) ApplyFloorCrop() (*Result, error) {
	if s.grid == nil || s.base == nil {
		return nil, errors.Wrap(ErrMissingInput, "nothing has been reconstructed")
	}
	if s.grid.Empty() {
		return s.current, nil
	}

	var plane voxel.FloorPlane
	var err error
	if s.background != nil && s.background.Size() > 0 {
		plane, err = s.grid.FitFloor(s.background.Points(), s.cfg.Floor)
	} else {
		plane, err = s.grid.FitFloorFromSurface()
	}
	if err != nil {
		s.logger.Warnw("skipping floor crop", "error", err)
		return s.current, err
	}

	cropped := s.grid.CropToFloor(s.base.Voxels, plane)
	s.current = newResult(cropped, s.grid.VoxelSize)
	s.logger.Debugw("applied floor crop",
		"plane", plane,
		"kept", cropped.Size(),
		"of", s.base.Voxels.Size())
	return s.current, nil
}

// ResetCrop restores the retained pre-crop result, so cropping can be
// toggled without recomputation.
func (s *Session) ResetCrop() *Result {
	s.current = s.base
	return s.current
}

// Result returns the current consistent snapshot, or nil before
// reconstruction.
func (s *Session) Result() *Result {
	return s.current
}

// Grid returns the reconstruction grid for export, or nil before
// reconstruction.
func (s *Session) Grid() *voxel.Grid {
	return s.grid
}

// Volume returns the current estimated volume in cubic meters, zero before
// reconstruction.
func (s *Session) Volume() float64 {
	if s.current == nil {
		return 0
	}
	return s.current.Volume
}

// CroppedSamples returns the capture's samples restricted to the given mask,
// for re-serialization in the capture schema.
func (s *Session) CroppedSamples(mask *segmentation.Mask) ([]transform.DepthSample, error) {
	if s.intrinsics == nil {
		return nil, errors.Wrap(ErrMissingInput, "no capture loaded")
	}
	if mask == nil {
		return nil, errors.Wrap(ErrMissingInput, "no mask to crop with")
	}
	resampled := mask.ResampleTo(s.intrinsics.Width, s.intrinsics.Height)
	out := make([]transform.DepthSample, 0, len(s.samples))
	for _, sample := range s.samples {
		if resampled.Get(sample.PixelX, sample.PixelY) {
			out = append(out, sample)
		}
	}
	return out, nil
}
