package texture

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"phenotrace/internal/band"
	"phenotrace/internal/raster"
)

// pcaOrder fixes the column order of the observation matrix.
var pcaOrder = []string{band.NIR, band.RedEdge, band.Red, band.Green}

// PCABand projects the four spectral bands onto their first principal
// component inside the mask and rescales the scores to 8 bits. Pixels
// outside the mask, or with a non-finite sample in any band, map to zero.
func PCABand(stack band.Stack, mask *raster.Mask) (*raster.Map, error) {
	planes := make([]*raster.Map, len(pcaOrder))
	for i, name := range pcaOrder {
		p, ok := stack[name]
		if !ok {
			return nil, fmt.Errorf("pca band: missing band %q", name)
		}
		planes[i] = p
	}
	w, h := planes[0].W, planes[0].H

	valid := make([]int, 0, w*h)
	samples := make([]float64, 0, w*h*len(planes))
	for i := 0; i < w*h; i++ {
		if mask != nil && mask.Pix[i] == raster.Background {
			continue
		}
		finite := true
		for _, p := range planes {
			if math.IsNaN(p.Pix[i]) || math.IsInf(p.Pix[i], 0) {
				finite = false
				break
			}
		}
		if !finite {
			continue
		}
		valid = append(valid, i)
		for _, p := range planes {
			samples = append(samples, p.Pix[i])
		}
	}
	if len(valid) < len(planes) {
		return nil, fmt.Errorf("pca band: %d valid pixels, need at least %d", len(valid), len(planes))
	}

	obs := mat.NewDense(len(valid), len(planes), samples)
	var pc stat.PC
	if !pc.PrincipalComponents(obs, nil) {
		return nil, fmt.Errorf("pca band: decomposition failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	out := raster.NewMap(w, h)
	minScore, maxScore := math.Inf(1), math.Inf(-1)
	scores := make([]float64, len(valid))
	for row := range valid {
		score := 0.0
		for c := 0; c < len(planes); c++ {
			score += obs.At(row, c) * vecs.At(c, 0)
		}
		scores[row] = score
		if score < minScore {
			minScore = score
		}
		if score > maxScore {
			maxScore = score
		}
	}

	span := maxScore - minScore
	for row, i := range valid {
		if span <= 0 {
			out.Pix[i] = 0
			continue
		}
		out.Pix[i] = math.Round((scores[row] - minScore) / span * 255)
	}
	return out, nil
}
