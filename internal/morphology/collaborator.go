// Package morphology drives an external skeleton-analysis collaborator
// through the pruning, branch, tip, segment and size stages of a plant
// run, isolating per-stage failures and converting pixel traits to
// physical units.
package morphology

import (
	"context"
	"image"

	"phenotrace/internal/raster"
)

// Segments is an opaque batch of skeleton path objects produced by Prune
// and consumed by the per-segment analyses. The orchestrator only ever
// asks how many there are.
type Segments interface {
	Len() int
}

// Observation is one measurement the collaborator records while analyzing
// a plant. Sample groups observations belonging to one labeled object.
type Observation struct {
	Sample string
	Trait  string
	Value  any
}

// Session wraps the collaborator's shared observation buffer as an
// explicit per-run object. Reset is called at the start of every plant's
// run so measurements never leak across runs.
type Session interface {
	Reset()
	Observations() []Observation
	Value(sample, trait string) (any, bool)
}

// Toolkit is the external morphology collaborator. Analysis methods record
// their measurements through the session and return a diagnostic image.
type Toolkit interface {
	Skeletonize(ctx context.Context, mask *raster.Mask) (*raster.Mask, error)

	// Prune removes skeleton branches shorter than size and re-segments
	// the result, returning the pruned skeleton, a diagnostic rendering
	// and the path objects.
	Prune(ctx context.Context, skel *raster.Mask, size int, img *image.RGBA) (*raster.Mask, *image.RGBA, Segments, error)

	FindBranchPoints(ctx context.Context, skel *raster.Mask, img *image.RGBA, label string) (*image.RGBA, error)

	// FindTips may fail when the skeleton retains too many spurious tips;
	// limit > 0 caps the accepted count, 0 leaves the collaborator's
	// default in place.
	FindTips(ctx context.Context, skel *raster.Mask, img *image.RGBA, label string, limit int) (*image.RGBA, error)

	SegmentSort(ctx context.Context, skel *raster.Mask, segs Segments, img *image.RGBA) (leaf, stem Segments, err error)
	SegmentID(ctx context.Context, skel *raster.Mask, segs Segments, img *image.RGBA) (*image.RGBA, error)

	SegmentPathLength(ctx context.Context, img *image.RGBA, segs Segments, label string) (*image.RGBA, error)
	SegmentEuclideanLength(ctx context.Context, img *image.RGBA, segs Segments, label string) (*image.RGBA, error)
	SegmentCurvature(ctx context.Context, img *image.RGBA, segs Segments, label string) (*image.RGBA, error)
	SegmentAngle(ctx context.Context, img *image.RGBA, segs Segments, label string) (*image.RGBA, error)
	SegmentTangentAngle(ctx context.Context, img *image.RGBA, segs Segments, size int, label string) (*image.RGBA, error)
	SegmentInsertionAngle(ctx context.Context, skel *raster.Mask, img *image.RGBA, leaf, stem Segments, size int, label string) (*image.RGBA, error)

	CreateLabels(ctx context.Context, mask *raster.Mask) (labeled *raster.Mask, n int, err error)
	AnalyzeSize(ctx context.Context, img *image.RGBA, labeled *raster.Mask, n int, label string) (*image.RGBA, error)
}

// MemorySession is a Session backed by an in-process observation list.
// Collaborator implementations record into it; the orchestrator reads it
// back after the run.
type MemorySession struct {
	obs []Observation
}

func NewMemorySession() *MemorySession { return &MemorySession{} }

func (s *MemorySession) Reset() { s.obs = s.obs[:0] }

// Record appends one observation.
func (s *MemorySession) Record(sample, trait string, value any) {
	s.obs = append(s.obs, Observation{Sample: sample, Trait: trait, Value: value})
}

func (s *MemorySession) Observations() []Observation {
	out := make([]Observation, len(s.obs))
	copy(out, s.obs)
	return out
}

// Value returns the most recent observation for (sample, trait).
func (s *MemorySession) Value(sample, trait string) (any, bool) {
	for i := len(s.obs) - 1; i >= 0; i-- {
		if s.obs[i].Sample == sample && s.obs[i].Trait == trait {
			return s.obs[i].Value, true
		}
	}
	return nil, false
}
