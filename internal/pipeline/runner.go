package pipeline

import (
	"context"
	"fmt"
	"image"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"phenotrace/internal/band"
	"phenotrace/internal/morphology"
	"phenotrace/internal/raster"
	"phenotrace/internal/segment"
	"phenotrace/internal/stats"
	"phenotrace/internal/texture"
	"phenotrace/internal/vegindex"
	"phenotrace/pkg/geometry"
)

// Identity names the plant a frame belongs to.
type Identity struct {
	Species string
	Date    string
	PlantID string
}

// Result is everything one frame's run produced. A degraded run still
// returns a Result; Warnings records which stages could not contribute.
type Result struct {
	RunID    uuid.UUID
	Identity Identity

	Stack     band.Stack
	Composite *band.Composite
	Mask      *raster.Mask

	IndexMaps       map[string]*raster.Map
	SkippedIndices  []string
	VegFeatures     stats.Record
	TextureMaps     map[string]*texture.Descriptors
	TextureFeatures stats.Record
	Traits          *morphology.TraitSet
	Visualizations  map[string]image.Image

	Warnings []string
}

// Collaborators bundles the external models the pipeline drives. Any of
// them may be nil; the corresponding stage degrades instead of failing
// the run.
type Collaborators struct {
	Segmenter  segment.Segmenter
	Detector   segment.Detector
	Morphology morphology.Toolkit
	Session    morphology.Session
	BoxCounter texture.BoxCounter
}

// Runner executes the full per-plant pipeline.
type Runner struct {
	cfg    Config
	collab Collaborators
	log    *zap.Logger
}

func NewRunner(cfg Config, collab Collaborators, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{cfg: cfg, collab: collab, log: log}
}

// Run processes one raw frame end to end, obtaining the plant mask from
// the segmentation collaborator.
func (r *Runner) Run(ctx context.Context, frame *raster.Map, id Identity) *Result {
	stack, comp := band.Decompose(frame)
	shape := geometry.Size{Width: comp.W, Height: comp.H}

	res := r.newResult(id, stack, comp)
	mask := r.selectMask(ctx, comp, shape, id, res)
	r.analyze(ctx, res, mask)
	return res
}

// RunWithMask processes one raw frame with an externally supplied mask,
// bypassing segmentation and detection. The mask is still refined to its
// largest connected component.
func (r *Runner) RunWithMask(ctx context.Context, frame *raster.Map, mask *raster.Mask, id Identity) *Result {
	stack, comp := band.Decompose(frame)
	res := r.newResult(id, stack, comp)

	if mask.W != comp.W || mask.H != comp.H {
		resized, err := mask.ResizeNearest(comp.W, comp.H)
		if err != nil {
			r.warn(res, "resize supplied mask: %v", err)
			return res
		}
		mask = resized
	}
	refined, err := segment.Refine(mask, r.roi(), nil)
	if err != nil {
		r.warn(res, "mask refinement: %v", err)
		refined = mask
	}
	r.analyze(ctx, res, refined)
	return res
}

func (r *Runner) newResult(id Identity, stack band.Stack, comp *band.Composite) *Result {
	return &Result{
		RunID:          uuid.New(),
		Identity:       id,
		Stack:          stack,
		Composite:      comp,
		Visualizations: map[string]image.Image{},
	}
}

// selectMask drives detection, selection and refinement. Without a
// segmenter (or with zero candidates) the mask stays all-background and
// downstream stages produce empty feature sets.
func (r *Runner) selectMask(ctx context.Context, comp *band.Composite, shape geometry.Size, id Identity, res *Result) *raster.Mask {
	if r.collab.Segmenter == nil {
		r.warn(res, "no segmentation collaborator, mask is empty")
		return raster.NewMask(shape.Width, shape.Height)
	}

	instances, err := r.collab.Segmenter.Segment(ctx, comp, r.cfg.SegmentPrompt)
	if err != nil {
		r.warn(res, "segmentation: %v", err)
		return raster.NewMask(shape.Width, shape.Height)
	}

	var exclusions []geometry.RectInt
	if r.collab.Detector != nil {
		dets, err := r.collab.Detector.Detect(ctx, comp)
		if err != nil {
			r.warn(res, "detection: %v", err)
		} else {
			exclusions = segment.ExclusionBoxes(dets, r.cfg.ExclusionKeywords)
		}
	}

	policy := r.cfg.Policies.For(id.PlantID)
	selected := segment.Select(instances, shape, policy)
	r.log.Debug("mask selected",
		zap.String("plant", id.PlantID),
		zap.Stringer("policy", policy),
		zap.Int("candidates", instances.Len()))

	refined, err := segment.Refine(selected, r.roi(), exclusions)
	if err != nil {
		r.warn(res, "mask refinement: %v", err)
		return selected
	}
	return refined
}

// analyze runs the index, texture and morphology stages over the final
// mask.
func (r *Runner) analyze(ctx context.Context, res *Result, mask *raster.Mask) {
	res.Mask = mask

	veg := vegindex.Compute(res.Stack, mask, r.log)
	res.IndexMaps = veg.Maps
	res.SkippedIndices = veg.Skipped
	res.VegFeatures = stats.Record{}
	for name, summary := range veg.Features(mask) {
		summary.Flatten(name, res.VegFeatures)
	}
	for name, m := range veg.Maps {
		res.Visualizations[name] = vegindex.Visualize(name, m, mask)
	}

	eng := texture.NewEngine(r.cfg.Texture, r.collab.BoxCounter, r.log)
	res.TextureMaps = eng.Compute(res.Stack, res.Composite, mask)
	res.TextureFeatures = texture.Features(res.TextureMaps, mask)

	if r.collab.Morphology != nil {
		orch := morphology.NewOrchestrator(r.collab.Morphology, r.collab.Session, r.cfg.MorphologyOptions(), r.log)
		res.Traits = orch.Run(ctx, res.Composite, mask)
		for stage, err := range res.Traits.StageErrors {
			r.warn(res, "morphology %s: %v", stage, err)
		}
	} else {
		r.warn(res, "no morphology collaborator, traits skipped")
	}

	res.Visualizations["mask_overlay"] = Overlay(res.Composite, mask)
}

func (r *Runner) roi() *geometry.RectInt {
	if r.cfg.ROI == nil {
		return nil
	}
	rect := r.cfg.ROI.Rect()
	return &rect
}

func (r *Runner) warn(res *Result, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.log.Warn(msg, zap.String("plant", res.Identity.PlantID))
	res.Warnings = append(res.Warnings, msg)
}
