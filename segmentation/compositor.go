package segmentation

import (
	"context"
	"sort"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/endev-llc/pocketscale/utils"
)

// Category is a semantic region accumulated independently during a capture.
type Category string

const (
	// CategoryPrimary is the object whose volume is being estimated.
	CategoryPrimary Category = "primary"
	// CategoryContents is a nested secondary selection, e.g. the contents of
	// a container.
	CategoryContents Category = "contents"
	// CategoryBackground is the reference support surface.
	CategoryBackground Category = "background"
)

// promptRecord is one entry of the sub-mask history: the masks one prompt
// produced, per modality that succeeded.
type promptRecord struct {
	category Category
	masks    map[Modality]*Mask
}

// Compositor accumulates sub-masks per category from a sequence of prompts.
// The composite of a category is always the exact union of its history, so
// undo can recompute it exactly. All state is scoped to one capture session.
type Compositor struct {
	predictor  Predictor
	embeddings map[Modality]ImageEmbedding
	logger     golog.Logger

	history    []*promptRecord
	composites map[Category]map[Modality]*Mask
}

// NewCompositor returns a compositor that runs prompts against the given
// predictor, once per modality embedding.
func NewCompositor(predictor Predictor, embeddings map[Modality]ImageEmbedding, logger golog.Logger) *Compositor {
	return &Compositor{
		predictor:  predictor,
		embeddings: embeddings,
		logger:     logger,
		composites: map[Category]map[Modality]*Mask{},
	}
}

func (c *Compositor) modalities() []Modality {
	mods := make([]Modality, 0, len(c.embeddings))
	for m := range c.embeddings {
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i] < mods[j] })
	return mods
}

// ApplyPrompt invokes the predictor once per modality, in parallel, and
// appends the resulting sub-masks to the category's history. If one modality
// fails, the surviving one is used alone; if all fail, the history is left
// untouched and a PredictorFailure is returned.
func (c *Compositor) ApplyPrompt(ctx context.Context, category Category, prompt Prompt) error {
	mods := c.modalities()
	if len(mods) == 0 {
		return errors.Wrap(ErrPredictorFailure, "no image embeddings available")
	}

	masks := make([]*Mask, len(mods))
	errs := make([]error, len(mods))
	fs := make([]utils.SimpleFunc, len(mods))
	for i, mod := range mods {
		i, mod := i, mod
		emb := c.embeddings[mod]
		fs[i] = func(ctx context.Context) error {
			candidates, err := c.predictor.Predict(ctx, emb, prompt)
			if err != nil {
				errs[i] = err
				return nil
			}
			m, err := bestCandidateMask(candidates)
			if err != nil {
				errs[i] = err
				return nil
			}
			// predictors may answer at their own resolution
			masks[i] = m.ResampleTo(emb.Width, emb.Height)
			return nil
		}
	}
	if _, err := utils.RunInParallel(ctx, fs); err != nil {
		return err
	}

	record := &promptRecord{category: category, masks: map[Modality]*Mask{}}
	var failures error
	for i, mod := range mods {
		if errs[i] != nil {
			failures = multierr.Combine(failures, errs[i])
			c.logger.Warnw("mask prediction failed for one modality, continuing without it",
				"modality", mod, "error", errs[i])
			continue
		}
		record.masks[mod] = masks[i]
	}
	if len(record.masks) == 0 {
		return errors.Wrapf(ErrPredictorFailure, "all modalities failed: %v", failures)
	}

	c.history = append(c.history, record)
	c.mergeRecord(record)
	return nil
}

// DrawStroke rasterizes a freehand path directly into a sub-mask of the given
// modality, bypassing the predictor. It is appended to the history exactly
// like a predicted mask.
func (c *Compositor) DrawStroke(category Category, modality Modality, points []r2.Point, brushRadius float64) error {
	emb, ok := c.embeddings[modality]
	if !ok {
		return errors.Errorf("no embedding for modality %v", modality)
	}
	m := rasterizeStroke(emb.Width, emb.Height, points, brushRadius)
	record := &promptRecord{category: category, masks: map[Modality]*Mask{modality: m}}
	c.history = append(c.history, record)
	c.mergeRecord(record)
	return nil
}

func (c *Compositor) mergeRecord(record *promptRecord) {
	byModality, ok := c.composites[record.category]
	if !ok {
		byModality = map[Modality]*Mask{}
		c.composites[record.category] = byModality
	}
	for mod, m := range record.masks {
		existing, ok := byModality[mod]
		if !ok {
			byModality[mod] = m.Clone()
			continue
		}
		union, err := Union(existing, m)
		if err != nil {
			// records are normalized to the embedding resolution on entry
			c.logger.Errorw("dropping sub-mask with mismatched dimensions", "error", err)
			continue
		}
		byModality[mod] = union
	}
}

// Undo removes the most recently added sub-mask and recomposites the owning
// category from the remaining history. It reports whether anything was
// undone.
func (c *Compositor) Undo() bool {
	if len(c.history) == 0 {
		return false
	}
	last := c.history[len(c.history)-1]
	c.history = c.history[:len(c.history)-1]
	c.recompose(last.category)
	return true
}

func (c *Compositor) recompose(category Category) {
	delete(c.composites, category)
	for _, record := range c.history {
		if record.category == category {
			c.mergeRecord(record)
		}
	}
}

// Clear resets all history and composites for the current session.
func (c *Compositor) Clear() {
	c.history = nil
	c.composites = map[Category]map[Modality]*Mask{}
}

// HistoryLen returns the number of sub-masks applied so far.
func (c *Compositor) HistoryLen() int {
	return len(c.history)
}

// Composite returns a copy of the category's accumulated mask for the given
// modality, or nil if nothing has been selected.
func (c *Compositor) Composite(category Category, modality Modality) *Mask {
	byModality, ok := c.composites[category]
	if !ok {
		return nil
	}
	m, ok := byModality[modality]
	if !ok {
		return nil
	}
	return m.Clone()
}

// PrimaryWithContents returns the primary composite expanded with the
// contents composite, so the kept region always covers any nested selection.
func (c *Compositor) PrimaryWithContents(modality Modality) (*Mask, error) {
	primary := c.Composite(CategoryPrimary, modality)
	if primary == nil {
		return nil, errors.New("no primary selection")
	}
	contents := c.Composite(CategoryContents, modality)
	if contents == nil {
		return primary, nil
	}
	return Union(primary, contents.ResampleTo(primary.Width(), primary.Height()))
}
