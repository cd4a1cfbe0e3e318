package morphology

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"

	"go.uber.org/zap"

	"phenotrace/internal/band"
	"phenotrace/internal/raster"
)

// DefaultPixelScale converts skeleton pixels to centimeters for the
// imaging rig's fixed camera geometry.
const DefaultPixelScale = 0.1099609375

// Options tunes the stage sequence.
type Options struct {
	PruneSizes    []int
	PixelScale    float64
	TipLimit      int
	TangentSize   int
	InsertionSize int
	Label         string
}

// DefaultOptions returns the production stage parameters.
func DefaultOptions() Options {
	return Options{
		PruneSizes:    []int{200, 100, 50, 30, 10},
		PixelScale:    DefaultPixelScale,
		TipLimit:      0,
		TangentSize:   15,
		InsertionSize: 20,
		Label:         "default",
	}
}

// TraitSet is the per-plant morphology output. SizeTraits holds scaled
// scalars and raw counts, MorphologyTraits any additional scalar or
// list-valued observations, Images every diagnostic map a stage produced.
// StageErrors records which stages failed; a populated map never means
// the run as a whole failed.
type TraitSet struct {
	SizeTraits       map[string]float64
	MorphologyTraits map[string]any
	Images           map[string]image.Image
	StageErrors      map[string]error
}

func newTraitSet() *TraitSet {
	return &TraitSet{
		SizeTraits:       map[string]float64{},
		MorphologyTraits: map[string]any{},
		Images:           map[string]image.Image{},
		StageErrors:      map[string]error{},
	}
}

// Orchestrator runs the morphology stage sequence against a toolkit,
// isolating each stage's failure so one plant's bad skeleton never aborts
// a batch.
type Orchestrator struct {
	tk   Toolkit
	sess Session
	opts Options
	log  *zap.Logger
}

func NewOrchestrator(tk Toolkit, sess Session, opts Options, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Label == "" {
		opts.Label = "default"
	}
	if opts.PixelScale <= 0 {
		opts.PixelScale = DefaultPixelScale
	}
	return &Orchestrator{tk: tk, sess: sess, opts: opts, log: log}
}

// Run analyzes one plant. The mask is resized to the composite's
// dimensions when they differ; an all-background mask completes with
// empty trait maps.
func (o *Orchestrator) Run(ctx context.Context, comp *band.Composite, mask *raster.Mask) *TraitSet {
	ts := newTraitSet()
	if o.tk == nil {
		ts.StageErrors["toolkit"] = fmt.Errorf("no morphology toolkit configured")
		return ts
	}
	if o.sess != nil {
		o.sess.Reset()
	}

	work := mask
	if mask.W != comp.W || mask.H != comp.H {
		resized, err := mask.ResizeNearest(comp.W, comp.H)
		if err != nil {
			ts.StageErrors["sanitize"] = fmt.Errorf("resize mask to %dx%d: %w", comp.W, comp.H, err)
			return ts
		}
		o.log.Info("morphology: mask resized to composite dimensions",
			zap.Int("width", comp.W), zap.Int("height", comp.H))
		work = resized
	}
	if work.ForegroundCount() == 0 {
		return ts
	}
	img := comp.RGBMasked(work)

	skel, err := o.tk.Skeletonize(ctx, work)
	if err != nil {
		ts.StageErrors["skeletonize"] = err
		return ts
	}
	ts.Images["skeleton"] = skel.ToGray()

	skel, segs := o.prune(ctx, skel, img, ts)

	if bimg, err := o.tk.FindBranchPoints(ctx, skel, img, o.opts.Label); err != nil {
		ts.StageErrors["branch_points"] = err
	} else if bimg != nil {
		ts.Images["branch_points"] = bimg
	}
	if timg, err := o.tk.FindTips(ctx, skel, img, o.opts.Label, o.opts.TipLimit); err != nil {
		ts.StageErrors["tips"] = err
		o.log.Warn("morphology: tip detection failed", zap.Error(err))
	} else if timg != nil {
		ts.Images["tips"] = timg
	}

	var leaf, stem Segments
	if segs != nil {
		leaf, stem, err = o.tk.SegmentSort(ctx, skel, segs, img)
		if err != nil {
			ts.StageErrors["segment_sort"] = err
			leaf, stem = nil, nil
		}
	}
	// Counts are always reported once a skeleton exists, so a plant with no
	// sortable segments reads as zero rather than missing.
	ts.SizeTraits["leaf_count"] = float64(count(leaf))
	ts.SizeTraits["stem_count"] = float64(count(stem))
	if count(leaf) > 0 {
		o.segmentMetrics(ctx, skel, img, leaf, stem, ts)
	}

	o.analyzeSize(ctx, img, work, ts)
	o.collectObservations(ts)
	return ts
}

// prune applies the descending size sequence, feeding each pass's output
// into the next. A pass that grows the skeleton is discarded and the
// previous image kept.
func (o *Orchestrator) prune(ctx context.Context, skel *raster.Mask, img *image.RGBA, ts *TraitSet) (*raster.Mask, Segments) {
	var segs Segments
	prev := skel.ForegroundCount()
	for _, size := range o.opts.PruneSizes {
		pruned, dbg, s, err := o.tk.Prune(ctx, skel, size, img)
		if err != nil {
			ts.StageErrors[fmt.Sprintf("prune_%d", size)] = err
			continue
		}
		n := pruned.ForegroundCount()
		if n > prev {
			o.log.Warn("morphology: pruning pass grew the skeleton, discarding",
				zap.Int("size", size), zap.Int("before", prev), zap.Int("after", n))
			continue
		}
		prev = n
		skel = pruned
		segs = s
		if dbg != nil {
			ts.Images[fmt.Sprintf("pruned_%d", size)] = dbg
		} else {
			ts.Images[fmt.Sprintf("pruned_%d", size)] = pruned.ToGray()
		}
	}
	return skel, segs
}

func (o *Orchestrator) segmentMetrics(ctx context.Context, skel *raster.Mask, img *image.RGBA, leaf, stem Segments, ts *TraitSet) {
	if idImg, err := o.tk.SegmentID(ctx, skel, leaf, img); err != nil {
		ts.StageErrors["segment_id"] = err
	} else if idImg != nil {
		ts.Images["segment_id"] = idImg
	}

	metrics := []struct {
		name string
		run  func() (*image.RGBA, error)
	}{
		{"segment_path_length", func() (*image.RGBA, error) {
			return o.tk.SegmentPathLength(ctx, img, leaf, o.opts.Label)
		}},
		{"segment_euclidean_length", func() (*image.RGBA, error) {
			return o.tk.SegmentEuclideanLength(ctx, img, leaf, o.opts.Label)
		}},
		{"segment_curvature", func() (*image.RGBA, error) {
			return o.tk.SegmentCurvature(ctx, img, leaf, o.opts.Label)
		}},
		{"segment_angle", func() (*image.RGBA, error) {
			return o.tk.SegmentAngle(ctx, img, leaf, o.opts.Label)
		}},
		{"segment_tangent_angle", func() (*image.RGBA, error) {
			return o.tk.SegmentTangentAngle(ctx, img, leaf, o.opts.TangentSize, o.opts.Label)
		}},
	}
	for _, m := range metrics {
		if out, err := m.run(); err != nil {
			ts.StageErrors[m.name] = err
		} else if out != nil {
			ts.Images[m.name] = out
		}
	}

	if count(stem) > 0 {
		if out, err := o.tk.SegmentInsertionAngle(ctx, skel, img, leaf, stem, o.opts.InsertionSize, o.opts.Label); err != nil {
			ts.StageErrors["segment_insertion_angle"] = err
		} else if out != nil {
			ts.Images["segment_insertion_angle"] = out
		}
	}
}

func (o *Orchestrator) analyzeSize(ctx context.Context, img *image.RGBA, mask *raster.Mask, ts *TraitSet) {
	labeled, n, err := o.tk.CreateLabels(ctx, mask)
	if err != nil {
		ts.StageErrors["create_labels"] = err
		return
	}
	sizeImg, err := o.tk.AnalyzeSize(ctx, img, labeled, n, o.opts.Label)
	if err != nil {
		ts.StageErrors["analyze_size"] = err
		return
	}
	if sizeImg != nil {
		ts.Images["size_analysis"] = sizeImg
	}
}

func count(segs Segments) int {
	if segs == nil {
		return 0
	}
	return segs.Len()
}

// Trait names scaled by the pixel-to-cm constant, or by its square.
var (
	lengthTraits = map[string]bool{
		"perimeter":          true,
		"width":              true,
		"height":             true,
		"longest_path":       true,
		"ellipse_major_axis": true,
		"ellipse_minor_axis": true,
	}
	areaTraits = map[string]bool{
		"area":             true,
		"convex_hull_area": true,
	}
	droppedTraits = map[string]bool{
		"in_bounds":       true,
		"object_in_frame": true,
	}
	sizeTraitNames = map[string]bool{
		"area":                 true,
		"convex_hull_area":     true,
		"convex_hull_vertices": true,
		"solidity":             true,
		"perimeter":            true,
		"width":                true,
		"height":               true,
		"longest_path":         true,
		"ellipse_major_axis":   true,
		"ellipse_minor_axis":   true,
		"ellipse_angle":        true,
		"ellipse_eccentricity": true,
	}
)

// collectObservations converts the session's side-table for this run's
// sample into the trait maps, applying unit conversion.
func (o *Orchestrator) collectObservations(ts *TraitSet) {
	if o.sess == nil {
		return
	}
	obs := o.sess.Observations()
	if len(obs) == 0 {
		return
	}
	sample := o.pickSample(obs)

	for _, ob := range obs {
		if ob.Sample != sample || droppedTraits[ob.Trait] {
			continue
		}
		if v, ok := asFloat(ob.Value); ok {
			switch {
			case lengthTraits[ob.Trait]:
				v *= o.opts.PixelScale
			case areaTraits[ob.Trait]:
				v *= o.opts.PixelScale * o.opts.PixelScale
			}
			if sizeTraitNames[ob.Trait] {
				ts.SizeTraits[ob.Trait] = v
			} else {
				ts.MorphologyTraits[ob.Trait] = v
			}
			continue
		}
		if joined, n, ok := asList(ob.Value); ok {
			ts.MorphologyTraits[ob.Trait] = joined
			ts.SizeTraits[ob.Trait+"_count"] = float64(n)
			continue
		}
		ts.MorphologyTraits[ob.Trait] = fmt.Sprint(ob.Value)
	}
}

// pickSample prefers "<label>_1", then the bare label, then the first
// sample recorded.
func (o *Orchestrator) pickSample(obs []Observation) string {
	seen := map[string]bool{}
	var names []string
	for _, ob := range obs {
		if !seen[ob.Sample] {
			seen[ob.Sample] = true
			names = append(names, ob.Sample)
		}
	}
	if seen[o.opts.Label+"_1"] {
		return o.opts.Label + "_1"
	}
	if seen[o.opts.Label] {
		return o.opts.Label
	}
	sort.Strings(names)
	return names[0]
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// asList serializes slice-valued observations as a "; "-delimited string
// and reports the element count.
func asList(v any) (string, int, bool) {
	join := func(parts []string) string { return strings.Join(parts, "; ") }
	switch x := v.(type) {
	case []float64:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = fmt.Sprint(e)
		}
		return join(parts), len(x), true
	case []int:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = fmt.Sprint(e)
		}
		return join(parts), len(x), true
	case []string:
		return join(x), len(x), true
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = fmt.Sprint(e)
		}
		return join(parts), len(x), true
	}
	return "", 0, false
}
