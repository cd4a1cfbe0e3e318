package texture

import (
	"image"
	"math"

	"go.uber.org/zap"

	"phenotrace/internal/band"
	"phenotrace/internal/raster"
	"phenotrace/internal/stats"
)

// BandColor is the pseudo-band computed from the composite luminance, and
// BandPCA the first-principal-component projection of the spectral bands.
const (
	BandColor = "color"
	BandPCA   = "pca"
)

// Descriptors holds every texture plane computed for one input band.
type Descriptors struct {
	Gray        *raster.Map
	LBP         *image.Gray
	HOG         *image.Gray
	HOGFeatures []float64
	Lac1        *raster.Map
	Lac2        *raster.Map
	Lac3        *raster.Map // nil without a box counter
	EHD         *EHD
}

// Engine computes texture descriptors over a fixed set of input bands:
// the composite luminance, each spectral band, and the PCA projection.
type Engine struct {
	opts Options
	dbc  BoxCounter
	log  *zap.Logger
}

// NewEngine returns an engine with the given options. The box counter may
// be nil, in which case the gliding-box lacunarity plane is skipped.
func NewEngine(opts Options, dbc BoxCounter, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{opts: opts, dbc: dbc, log: log}
}

// Bands returns the band order the engine processes.
func (e *Engine) Bands() []string {
	out := []string{BandColor}
	out = append(out, band.TileOrder[:]...)
	return append(out, BandPCA)
}

// Compute derives descriptors for every available band. Bands missing from
// the stack are skipped with a warning rather than failing the run.
func (e *Engine) Compute(stack band.Stack, comp *band.Composite, mask *raster.Mask) map[string]*Descriptors {
	out := make(map[string]*Descriptors)
	for _, name := range e.Bands() {
		plane, ok := e.bandPlane(name, stack, comp, mask)
		if !ok {
			continue
		}
		out[name] = e.describe(plane)
	}
	return out
}

func (e *Engine) bandPlane(name string, stack band.Stack, comp *band.Composite, mask *raster.Mask) (*raster.Map, bool) {
	switch name {
	case BandColor:
		if comp == nil {
			e.log.Warn("texture: no composite, skipping color band")
			return nil, false
		}
		plane := comp.GrayMasked(mask)
		for i, v := range plane.Pix {
			plane.Pix[i] = math.Round(v)
		}
		return plane, true
	case BandPCA:
		plane, err := PCABand(stack, mask)
		if err != nil {
			e.log.Warn("texture: pca band skipped", zap.Error(err))
			return nil, false
		}
		return plane, true
	default:
		m, ok := stack[name]
		if !ok {
			e.log.Warn("texture: band missing from stack", zap.String("band", name))
			return nil, false
		}
		// Mask before stretching so background pixels land on the in-mask
		// minimum (0 after the stretch) instead of their raw reflectance.
		masked := m.Clone()
		masked.ApplyMask(mask)
		return raster.FromGray(masked.StretchMasked(mask)), true
	}
}

func (e *Engine) describe(plane *raster.Map) *Descriptors {
	d := &Descriptors{Gray: plane}
	d.LBP = LocalBinaryPattern(plane, e.opts.LBPPoints, e.opts.LBPRadius)
	d.HOGFeatures, d.HOG = HistogramOfGradients(plane, e.opts.HOGOrientations, e.opts.HOGCellSize, e.opts.HOGCellsPerBlock)
	d.Lac1 = Lacunarity(plane, e.opts.LacunarityWindow)
	d.Lac2 = MultiScaleLacunarity(plane, e.opts.LacunarityWindow)
	if e.dbc != nil {
		lac3, err := e.dbc.Transform(plane, e.opts.LacunarityWindow)
		if err != nil {
			e.log.Warn("texture: box-count lacunarity failed", zap.Error(err))
		} else {
			d.Lac3 = lac3
		}
	}
	d.EHD = EdgeHistogram(plane, e.opts)
	return d
}

// Features aggregates every descriptor plane over the mask into a flat
// record keyed "{band}_{descriptor}_{statistic}". Planes smaller than the
// mask (pooled or cropped outputs) are resized before aggregation.
func Features(described map[string]*Descriptors, mask *raster.Mask) stats.Record {
	rec := stats.Record{}
	for name, d := range described {
		summarizeInto(rec, name+"_lbp", raster.FromGray(d.LBP), mask)
		summarizeInto(rec, name+"_hog", raster.FromGray(d.HOG), mask)
		summarizeInto(rec, name+"_lac1", d.Lac1, mask)
		summarizeInto(rec, name+"_lac2", d.Lac2, mask)
		if d.Lac3 != nil {
			summarizeInto(rec, name+"_lac3", d.Lac3, mask)
		}
	}
	return rec
}

func summarizeInto(rec stats.Record, prefix string, m *raster.Map, mask *raster.Mask) {
	if m == nil || m.W == 0 || m.H == 0 {
		return
	}
	summary, ok := stats.Summarize(m, mask)
	if !ok {
		return
	}
	summary.Flatten(prefix, rec)
}
