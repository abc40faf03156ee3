package segmentation

import (
	"github.com/pkg/errors"
)

// ReconcileConfig specifies the parameters for dual-view mask reconciliation.
type ReconcileConfig struct {
	// TargetWidth and TargetHeight are the resolution of the reconciled
	// mask, normally the depth map resolution.
	TargetWidth  int
	TargetHeight int
	// EdgeMarginFrac is the fraction of rows zeroed at the top and bottom to
	// suppress capture-edge artifacts.
	EdgeMarginFrac float64
}

// DefaultReconcileConfig returns the config used by the capture pipeline.
func DefaultReconcileConfig(width, height int) ReconcileConfig {
	return ReconcileConfig{
		TargetWidth:    width,
		TargetHeight:   height,
		EdgeMarginFrac: 0.05,
	}
}

// ReconcileBackground intersects two background masks of the same region
// produced from two independently segmented image modalities. Requiring
// agreement between the two sharply reduces false-positive background
// selection versus trusting a single predictor run. If one modality's mask is
// missing, the surviving one is used alone. Any pixel already claimed by the
// contents mask is removed, so background-plane points never overlap the
// foreground object; contents may be nil.
func ReconcileBackground(a, b, contents *Mask, cfg ReconcileConfig) (*Mask, error) {
	if a == nil && b == nil {
		return nil, errors.New("at least one background mask is required to reconcile")
	}
	if cfg.TargetWidth <= 0 || cfg.TargetHeight <= 0 {
		return nil, errors.Errorf("invalid target resolution (%d,%d)", cfg.TargetWidth, cfg.TargetHeight)
	}
	var out *Mask
	switch {
	case a == nil:
		out = b.ResampleTo(cfg.TargetWidth, cfg.TargetHeight)
	case b == nil:
		out = a.ResampleTo(cfg.TargetWidth, cfg.TargetHeight)
	default:
		var err error
		out, err = Intersect(a.ResampleTo(cfg.TargetWidth, cfg.TargetHeight), b.ResampleTo(cfg.TargetWidth, cfg.TargetHeight))
		if err != nil {
			return nil, err
		}
	}
	out.ZeroEdgeRows(cfg.EdgeMarginFrac)
	if contents != nil {
		sub, err := Subtract(out, contents.ResampleTo(cfg.TargetWidth, cfg.TargetHeight))
		if err != nil {
			return nil, err
		}
		out = sub
	}
	return out, nil
}
