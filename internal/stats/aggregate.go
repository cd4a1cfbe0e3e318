// Package stats reduces 2-D maps to fixed statistic vectors over masked
// pixels. Reducers are NaN-tolerant: NaN marks "outside mask" or
// "numerically undefined" and is excluded from every statistic except the
// NaN fraction itself.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"phenotrace/internal/raster"
)

// Summary is the fixed statistic vector computed for every map.
type Summary struct {
	Mean        float64
	Std         float64
	Max         float64
	Min         float64
	Median      float64
	Q25         float64
	Q75         float64
	NaNFraction float64
}

// Record is a flat mapping of statistic name to value, one per
// (index-or-band, descriptor) pair, ready for the persistence boundary.
type Record map[string]float64

// Summarize computes the statistic vector of m over foreground mask
// pixels. The map is resampled to the mask's dimensions first if they
// disagree. ok is false when the mask selects zero pixels, in which case
// no record should be emitted.
func Summarize(m *raster.Map, mask *raster.Mask) (Summary, bool) {
	if m.W != mask.W || m.H != mask.H {
		m = m.ResizeNearest(mask.W, mask.H)
	}

	var (
		vals     []float64
		selected int
		nanCount int
	)
	for i, v := range m.Pix {
		if mask.Pix[i] != raster.Foreground {
			continue
		}
		selected++
		if math.IsNaN(v) {
			nanCount++
			continue
		}
		vals = append(vals, v)
	}
	if selected == 0 {
		return Summary{}, false
	}

	s := Summary{NaNFraction: float64(nanCount) / float64(selected)}
	if len(vals) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Max, s.Min, s.Median, s.Q25, s.Q75 = nan, nan, nan, nan, nan, nan, nan
		return s, true
	}

	sort.Float64s(vals)
	s.Min = vals[0]
	s.Max = vals[len(vals)-1]
	s.Mean = stat.Mean(vals, nil)
	// Population deviation, matching the original's ddof=0 convention.
	s.Std = stat.PopStdDev(vals, nil)
	s.Median = stat.Quantile(0.5, stat.LinInterp, vals, nil)
	s.Q25 = stat.Quantile(0.25, stat.LinInterp, vals, nil)
	s.Q75 = stat.Quantile(0.75, stat.LinInterp, vals, nil)
	return s, true
}

// Flatten writes the summary into rec using "{prefix}_{statistic}" keys.
func (s Summary) Flatten(prefix string, rec Record) {
	rec[prefix+"_mean"] = s.Mean
	rec[prefix+"_std"] = s.Std
	rec[prefix+"_max"] = s.Max
	rec[prefix+"_min"] = s.Min
	rec[prefix+"_median"] = s.Median
	rec[prefix+"_q25"] = s.Q25
	rec[prefix+"_q75"] = s.Q75
	rec[prefix+"_nan_fraction"] = s.NaNFraction
}
