package segment

import (
	"phenotrace/internal/raster"
	"phenotrace/pkg/geometry"
)

// MiddleFront sub-score weights.
const (
	weightHorizontal = 0.4
	weightVertical   = 0.3
	weightArea       = 0.3
)

// LargestConfident blend weights.
const (
	weightConfidence     = 0.7
	weightNormalizedArea = 0.3
)

// Select deterministically picks one plant mask from the candidates. Zero
// candidates yield an all-background mask of the image shape; a single
// candidate is returned unchanged regardless of policy. Selection is a
// pure function of (masks, boxes, scores, shape).
func Select(in Instances, shape geometry.Size, policy Policy) *raster.Mask {
	switch in.Len() {
	case 0:
		return raster.NewMask(shape.Width, shape.Height)
	case 1:
		return in.Masks[0].Clone()
	}

	var idx int
	switch policy {
	case PolicyNearestCenter:
		idx = nearestCenter(in, shape)
	case PolicyLargestConfident:
		idx = largestConfident(in)
	default:
		idx = middleFront(in, shape)
	}
	return in.Masks[idx].Clone()
}

func nearestCenter(in Instances, shape geometry.Size) int {
	center := shape.Center()
	best := 0
	bestDist := in.Boxes[0].Center().Distance(center)
	for i := 1; i < in.Len(); i++ {
		d := in.Boxes[i].Center().Distance(center)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func middleFront(in Instances, shape geometry.Size) int {
	n := in.Len()
	horizontal := make([]float64, n)
	vertical := make([]float64, n)
	area := make([]float64, n)

	centerX := float64(shape.Width) / 2
	for i, box := range in.Boxes {
		c := box.Center()
		dist := c.X - centerX
		if dist < 0 {
			dist = -dist
		}
		horizontal[i] = 1.0 / (1.0 + dist/float64(shape.Width))
		vertical[i] = c.Y / float64(shape.Height)
		area[i] = float64(in.Masks[i].ForegroundCount())
	}

	// Each sub-score is normalized by its own maximum before weighting.
	normalize(horizontal)
	normalize(vertical)
	normalize(area)

	best := 0
	bestScore := -1.0
	for i := 0; i < n; i++ {
		score := weightHorizontal*horizontal[i] + weightVertical*vertical[i] + weightArea*area[i]
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func largestConfident(in Instances) int {
	n := in.Len()
	area := make([]float64, n)
	maxArea := 0.0
	for i, m := range in.Masks {
		area[i] = float64(m.ForegroundCount())
		if area[i] > maxArea {
			maxArea = area[i]
		}
	}
	if maxArea == 0 {
		maxArea = 1
	}

	// A score slice shorter than the mask list is a malformed collaborator
	// response; fall back to pure area rather than indexing past it.
	if len(in.Scores) != n {
		best := 0
		for i := 1; i < n; i++ {
			if area[i] > area[best] {
				best = i
			}
		}
		return best
	}

	best := 0
	bestScore := -1.0
	for i := 0; i < n; i++ {
		score := weightConfidence*in.Scores[i] + weightNormalizedArea*area[i]/maxArea
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func normalize(vals []float64) {
	max := 0.0
	for _, v := range vals {
		if v > max {
			max = v
		}
	}
	if max <= 0 {
		return
	}
	for i := range vals {
		vals[i] /= max
	}
}
