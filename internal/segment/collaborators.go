// Package segment picks one plant instance among external segmentation
// candidates and refines the chosen mask.
package segment

import (
	"context"

	"phenotrace/internal/band"
	"phenotrace/internal/raster"
	"phenotrace/pkg/geometry"
)

// Instances holds the candidate instance masks returned by the external
// segmentation model for one image. Boxes and Masks are parallel; Scores
// may be nil when the model reports no confidence values.
type Instances struct {
	Masks  []*raster.Mask
	Boxes  []geometry.RectInt
	Scores []float64
}

// Len returns the number of candidates.
func (in Instances) Len() int { return len(in.Masks) }

// Segmenter is the external instance-segmentation collaborator. The core
// only reads its output.
type Segmenter interface {
	Segment(ctx context.Context, composite *band.Composite, prompt string) (Instances, error)
}

// Detection is one object-detection result with its class label.
type Detection struct {
	Box   geometry.RectInt
	Label string
	Score float64
}

// Detector is the external object-detection collaborator, used to locate
// container regions to exclude from the plant mask.
type Detector interface {
	Detect(ctx context.Context, composite *band.Composite) ([]Detection, error)
}
