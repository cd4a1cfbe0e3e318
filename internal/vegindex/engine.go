package vegindex

import (
	"math"

	"go.uber.org/zap"

	"phenotrace/internal/band"
	"phenotrace/internal/raster"
	"phenotrace/internal/stats"
)

// Result holds the computed index maps for one run. Maps carry NaN outside
// the mask and are read-only once produced.
type Result struct {
	// Maps is keyed by index name.
	Maps map[string]*raster.Map
	// Skipped lists indices dropped because a required band was absent.
	Skipped []string
}

// Compute evaluates every registered index against the band stack. An
// index whose required bands are missing is skipped, which is non-fatal.
// Pixels outside the mask are NaN.
func Compute(stack band.Stack, mask *raster.Mask, log *zap.Logger) *Result {
	if log == nil {
		log = zap.NewNop()
	}
	res := &Result{Maps: make(map[string]*raster.Map)}

	for _, name := range Names() {
		idx := registry[name]

		planes := make([]*raster.Map, 0, len(idx.Bands))
		missing := false
		for _, b := range idx.Bands {
			plane, ok := stack[b]
			if !ok || plane == nil {
				missing = true
				break
			}
			planes = append(planes, plane)
		}
		if missing {
			res.Skipped = append(res.Skipped, name)
			log.Warn("skipping vegetation index: missing band",
				zap.String("index", name), zap.Strings("bands", idx.Bands))
			continue
		}

		res.Maps[name] = evaluate(idx, planes, mask)
	}
	return res
}

func evaluate(idx Index, planes []*raster.Map, mask *raster.Mask) *raster.Map {
	w, h := planes[0].W, planes[0].H
	out := raster.NewMapFilled(w, h, math.NaN())

	vals := make([]float64, len(planes))
	for i := range out.Pix {
		if mask.Pix[i] != raster.Foreground {
			continue
		}
		for j, p := range planes {
			vals[j] = p.Pix[i]
		}
		out.Pix[i] = idx.Eval(vals...)
	}
	return out
}

// Features reduces every index map to its statistic vector over the mask.
// Maps whose mask selects no pixels produce no entry.
func (r *Result) Features(mask *raster.Mask) map[string]stats.Summary {
	out := make(map[string]stats.Summary, len(r.Maps))
	for name, m := range r.Maps {
		if s, ok := stats.Summarize(m, mask); ok {
			out[name] = s
		}
	}
	return out
}
