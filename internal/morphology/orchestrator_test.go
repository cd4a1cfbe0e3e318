package morphology

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phenotrace/internal/band"
	"phenotrace/internal/raster"
)

type fakeSegments int

func (s fakeSegments) Len() int { return int(s) }

// fakeToolkit scripts the collaborator: pruning results per size, optional
// per-stage failures, and canned observations recorded on AnalyzeSize.
type fakeToolkit struct {
	sess *MemorySession

	skeletonizeErr error
	pruneCounts    map[int]int
	pruneErr       map[int]error
	tipsErr        error
	sortErr        error
	leaf, stem     int
	observations   []Observation

	calls []string
}

func maskWithCount(w, h, n int) *raster.Mask {
	mask := raster.NewMask(w, h)
	for i := 0; i < n && i < len(mask.Pix); i++ {
		mask.Pix[i] = raster.Foreground
	}
	return mask
}

func (f *fakeToolkit) record(name string) { f.calls = append(f.calls, name) }

func (f *fakeToolkit) Skeletonize(_ context.Context, mask *raster.Mask) (*raster.Mask, error) {
	f.record("skeletonize")
	if f.skeletonizeErr != nil {
		return nil, f.skeletonizeErr
	}
	return mask.Clone(), nil
}

func (f *fakeToolkit) Prune(_ context.Context, skel *raster.Mask, size int, _ *image.RGBA) (*raster.Mask, *image.RGBA, Segments, error) {
	f.record(fmt.Sprintf("prune_%d", size))
	if err := f.pruneErr[size]; err != nil {
		return nil, nil, nil, err
	}
	n, ok := f.pruneCounts[size]
	if !ok {
		n = skel.ForegroundCount()
	}
	return maskWithCount(skel.W, skel.H, n), image.NewRGBA(image.Rect(0, 0, skel.W, skel.H)), fakeSegments(f.leaf + f.stem), nil
}

func (f *fakeToolkit) FindBranchPoints(_ context.Context, _ *raster.Mask, img *image.RGBA, _ string) (*image.RGBA, error) {
	f.record("branch_points")
	return img, nil
}

func (f *fakeToolkit) FindTips(_ context.Context, _ *raster.Mask, img *image.RGBA, _ string, _ int) (*image.RGBA, error) {
	f.record("tips")
	if f.tipsErr != nil {
		return nil, f.tipsErr
	}
	return img, nil
}

func (f *fakeToolkit) SegmentSort(_ context.Context, _ *raster.Mask, _ Segments, _ *image.RGBA) (Segments, Segments, error) {
	f.record("segment_sort")
	if f.sortErr != nil {
		return nil, nil, f.sortErr
	}
	return fakeSegments(f.leaf), fakeSegments(f.stem), nil
}

func (f *fakeToolkit) SegmentID(_ context.Context, _ *raster.Mask, _ Segments, img *image.RGBA) (*image.RGBA, error) {
	f.record("segment_id")
	return img, nil
}

func (f *fakeToolkit) SegmentPathLength(_ context.Context, img *image.RGBA, _ Segments, _ string) (*image.RGBA, error) {
	f.record("segment_path_length")
	return img, nil
}

func (f *fakeToolkit) SegmentEuclideanLength(_ context.Context, img *image.RGBA, _ Segments, _ string) (*image.RGBA, error) {
	f.record("segment_euclidean_length")
	return img, nil
}

func (f *fakeToolkit) SegmentCurvature(_ context.Context, img *image.RGBA, _ Segments, _ string) (*image.RGBA, error) {
	f.record("segment_curvature")
	return img, nil
}

func (f *fakeToolkit) SegmentAngle(_ context.Context, img *image.RGBA, _ Segments, _ string) (*image.RGBA, error) {
	f.record("segment_angle")
	return img, nil
}

func (f *fakeToolkit) SegmentTangentAngle(_ context.Context, img *image.RGBA, _ Segments, size int, _ string) (*image.RGBA, error) {
	f.record(fmt.Sprintf("segment_tangent_angle_%d", size))
	return img, nil
}

func (f *fakeToolkit) SegmentInsertionAngle(_ context.Context, _ *raster.Mask, img *image.RGBA, _, _ Segments, size int, _ string) (*image.RGBA, error) {
	f.record(fmt.Sprintf("segment_insertion_angle_%d", size))
	return img, nil
}

func (f *fakeToolkit) CreateLabels(_ context.Context, mask *raster.Mask) (*raster.Mask, int, error) {
	f.record("create_labels")
	return mask.Clone(), 1, nil
}

func (f *fakeToolkit) AnalyzeSize(_ context.Context, img *image.RGBA, _ *raster.Mask, _ int, _ string) (*image.RGBA, error) {
	f.record("analyze_size")
	for _, ob := range f.observations {
		f.sess.Record(ob.Sample, ob.Trait, ob.Value)
	}
	return img, nil
}

func testComposite(w, h int) *band.Composite {
	g := raster.NewMapFilled(w, h, 10)
	re := raster.NewMapFilled(w, h, 20)
	r := raster.NewMapFilled(w, h, 30)
	return band.NewComposite(g, re, r)
}

func newFake() (*fakeToolkit, *MemorySession) {
	sess := NewMemorySession()
	return &fakeToolkit{sess: sess, leaf: 2, stem: 1}, sess
}

func TestRunEmptyMaskCompletes(t *testing.T) {
	tk, sess := newFake()
	orch := NewOrchestrator(tk, sess, DefaultOptions(), nil)

	ts := orch.Run(context.Background(), testComposite(16, 16), raster.NewMask(16, 16))
	require.NotNil(t, ts)
	assert.Empty(t, ts.SizeTraits)
	assert.Empty(t, ts.MorphologyTraits)
	assert.Empty(t, ts.StageErrors)
	assert.Empty(t, tk.calls, "no collaborator calls for an empty mask")
}

func TestRunPruneMonotonicity(t *testing.T) {
	tk, sess := newFake()
	// The size-30 pass grows the skeleton and must be discarded.
	tk.pruneCounts = map[int]int{200: 90, 100: 80, 50: 60, 30: 70, 10: 40}

	orch := NewOrchestrator(tk, sess, DefaultOptions(), nil)
	mask := maskWithCount(16, 16, 100)
	ts := orch.Run(context.Background(), testComposite(16, 16), mask)

	assert.Contains(t, ts.Images, "pruned_200")
	assert.Contains(t, ts.Images, "pruned_50")
	assert.NotContains(t, ts.Images, "pruned_30", "growing pass discarded")
	assert.Contains(t, ts.Images, "pruned_10")
}

func TestRunPruneFailureIsolated(t *testing.T) {
	tk, sess := newFake()
	tk.pruneErr = map[int]error{100: errors.New("prune blew up")}
	tk.pruneCounts = map[int]int{200: 90, 50: 60, 30: 50, 10: 40}

	orch := NewOrchestrator(tk, sess, DefaultOptions(), nil)
	ts := orch.Run(context.Background(), testComposite(16, 16), maskWithCount(16, 16, 100))

	assert.Contains(t, ts.StageErrors, "prune_100")
	assert.Contains(t, ts.Images, "pruned_10", "later passes still run")
	assert.Contains(t, tk.calls, "analyze_size", "run continues past a failed stage")
}

func TestRunSkeletonizeFailureStopsEarly(t *testing.T) {
	tk, sess := newFake()
	tk.skeletonizeErr = errors.New("no skeleton")

	orch := NewOrchestrator(tk, sess, DefaultOptions(), nil)
	ts := orch.Run(context.Background(), testComposite(16, 16), maskWithCount(16, 16, 50))

	assert.Contains(t, ts.StageErrors, "skeletonize")
	assert.NotContains(t, tk.calls, "prune_200")
}

func TestRunTipFailureTolerated(t *testing.T) {
	tk, sess := newFake()
	tk.tipsErr = errors.New("too many tips")

	orch := NewOrchestrator(tk, sess, DefaultOptions(), nil)
	ts := orch.Run(context.Background(), testComposite(16, 16), maskWithCount(16, 16, 50))

	assert.Contains(t, ts.StageErrors, "tips")
	assert.Contains(t, tk.calls, "segment_sort")
	assert.Contains(t, tk.calls, "analyze_size")
	assert.Contains(t, ts.Images, "branch_points")
}

func TestRunSortFailureDegradesToSizeOnly(t *testing.T) {
	tk, sess := newFake()
	tk.sortErr = errors.New("cannot sort")

	orch := NewOrchestrator(tk, sess, DefaultOptions(), nil)
	ts := orch.Run(context.Background(), testComposite(16, 16), maskWithCount(16, 16, 50))

	assert.Contains(t, ts.StageErrors, "segment_sort")
	assert.NotContains(t, tk.calls, "segment_id")
	assert.Contains(t, tk.calls, "analyze_size")
	assert.Equal(t, 0.0, ts.SizeTraits["leaf_count"], "counts read zero when sorting fails")
	assert.Equal(t, 0.0, ts.SizeTraits["stem_count"])
}

func TestRunNoSegmentsReportsZeroCounts(t *testing.T) {
	tk, sess := newFake()
	tk.leaf, tk.stem = 0, 0

	orch := NewOrchestrator(tk, sess, DefaultOptions(), nil)
	ts := orch.Run(context.Background(), testComposite(16, 16), maskWithCount(16, 16, 50))

	require.Contains(t, ts.SizeTraits, "leaf_count")
	require.Contains(t, ts.SizeTraits, "stem_count")
	assert.Equal(t, 0.0, ts.SizeTraits["leaf_count"])
	assert.Equal(t, 0.0, ts.SizeTraits["stem_count"])
	assert.NotContains(t, tk.calls, "segment_path_length")
}

func TestRunSegmentMetricsAndCounts(t *testing.T) {
	tk, sess := newFake()
	tk.leaf, tk.stem = 3, 1

	opts := DefaultOptions()
	orch := NewOrchestrator(tk, sess, opts, nil)
	ts := orch.Run(context.Background(), testComposite(16, 16), maskWithCount(16, 16, 50))

	assert.Equal(t, 3.0, ts.SizeTraits["leaf_count"])
	assert.Equal(t, 1.0, ts.SizeTraits["stem_count"])
	assert.Contains(t, tk.calls, fmt.Sprintf("segment_tangent_angle_%d", opts.TangentSize))
	assert.Contains(t, tk.calls, fmt.Sprintf("segment_insertion_angle_%d", opts.InsertionSize))
}

func TestRunNoStemSkipsInsertionAngle(t *testing.T) {
	tk, sess := newFake()
	tk.leaf, tk.stem = 2, 0

	orch := NewOrchestrator(tk, sess, DefaultOptions(), nil)
	orch.Run(context.Background(), testComposite(16, 16), maskWithCount(16, 16, 50))

	assert.NotContains(t, tk.calls, "segment_insertion_angle_20")
	assert.Contains(t, tk.calls, "segment_path_length")
}

func TestUnitConversion(t *testing.T) {
	tk, sess := newFake()
	tk.observations = []Observation{
		{Sample: "default_1", Trait: "area", Value: 100.0},
		{Sample: "default_1", Trait: "perimeter", Value: 40.0},
		{Sample: "default_1", Trait: "solidity", Value: 0.9},
		{Sample: "default_1", Trait: "in_bounds", Value: true},
		{Sample: "default_1", Trait: "tips", Value: []float64{1, 2, 3}},
		{Sample: "other", Trait: "area", Value: 999.0},
	}

	opts := DefaultOptions()
	opts.PixelScale = 2
	orch := NewOrchestrator(tk, sess, opts, nil)
	ts := orch.Run(context.Background(), testComposite(16, 16), maskWithCount(16, 16, 50))

	assert.InDelta(t, 400.0, ts.SizeTraits["area"], 1e-9, "area scales by the square")
	assert.InDelta(t, 80.0, ts.SizeTraits["perimeter"], 1e-9, "length scales linearly")
	assert.Equal(t, 0.9, ts.SizeTraits["solidity"], "ratios stay raw")
	assert.NotContains(t, ts.MorphologyTraits, "in_bounds")
	assert.Equal(t, "1; 2; 3", ts.MorphologyTraits["tips"])
	assert.Equal(t, 3.0, ts.SizeTraits["tips_count"])
	assert.NotEqual(t, 999.0*4, ts.SizeTraits["area"], "other samples ignored")
}

func TestSessionResetBetweenRuns(t *testing.T) {
	tk, sess := newFake()
	tk.observations = []Observation{{Sample: "default_1", Trait: "area", Value: 10.0}}

	orch := NewOrchestrator(tk, sess, DefaultOptions(), nil)
	orch.Run(context.Background(), testComposite(16, 16), maskWithCount(16, 16, 50))
	require.NotEmpty(t, sess.Observations())

	tk.observations = nil
	orch.Run(context.Background(), testComposite(16, 16), maskWithCount(16, 16, 50))
	assert.Empty(t, sess.Observations(), "buffer reset at the start of every run")
}

func TestMemorySessionValue(t *testing.T) {
	sess := NewMemorySession()
	sess.Record("default_1", "area", 1.0)
	sess.Record("default_1", "area", 2.0)

	v, ok := sess.Value("default_1", "area")
	require.True(t, ok)
	assert.Equal(t, 2.0, v, "latest observation wins")

	_, ok = sess.Value("default_1", "missing")
	assert.False(t, ok)
}
