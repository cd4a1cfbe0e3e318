package texture

import (
	"image"
	"math"

	"phenotrace/internal/raster"
)

// HistogramOfGradients computes the standard gradient-histogram descriptor
// of a grayscale plane and its line-rendered visualization, rescaled to
// 8 bits. Orientations are unsigned (0-180 degrees); the feature vector is
// block normalized with L2-Hys.
func HistogramOfGradients(gray *raster.Map, orientations, cellSize, cellsPerBlock int) ([]float64, *image.Gray) {
	w, h := gray.W, gray.H
	cellsX := w / cellSize
	cellsY := h / cellSize
	if cellsX == 0 || cellsY == 0 {
		return nil, image.NewGray(image.Rect(0, 0, w, h))
	}

	// Central-difference gradients with replicated edges.
	hist := make([]float64, cellsY*cellsX*orientations)
	binWidth := math.Pi / float64(orientations)
	for y := 0; y < cellsY*cellSize; y++ {
		for x := 0; x < cellsX*cellSize; x++ {
			gx := atClamped(gray, x+1, y) - atClamped(gray, x-1, y)
			gy := atClamped(gray, x, y+1) - atClamped(gray, x, y-1)
			mag := math.Hypot(gx, gy)
			if mag == 0 {
				continue
			}
			angle := math.Atan2(gy, gx)
			if angle < 0 {
				angle += math.Pi
			}
			if angle >= math.Pi {
				angle -= math.Pi
			}
			bin := int(angle / binWidth)
			if bin >= orientations {
				bin = orientations - 1
			}
			cell := (y/cellSize)*cellsX + x/cellSize
			hist[cell*orientations+bin] += mag
		}
	}

	features := normalizeBlocks(hist, cellsY, cellsX, orientations, cellsPerBlock)
	return features, renderHOG(hist, cellsY, cellsX, orientations, cellSize)
}

// normalizeBlocks applies L2-Hys normalization over sliding cell blocks.
func normalizeBlocks(hist []float64, cellsY, cellsX, orientations, block int) []float64 {
	blocksY := cellsY - block + 1
	blocksX := cellsX - block + 1
	if blocksY <= 0 || blocksX <= 0 {
		return nil
	}

	const eps = 1e-10
	features := make([]float64, 0, blocksY*blocksX*block*block*orientations)
	vec := make([]float64, block*block*orientations)
	for by := 0; by < blocksY; by++ {
		for bx := 0; bx < blocksX; bx++ {
			vec = vec[:0]
			for cy := by; cy < by+block; cy++ {
				for cx := bx; cx < bx+block; cx++ {
					cell := cy*cellsX + cx
					vec = append(vec, hist[cell*orientations:(cell+1)*orientations]...)
				}
			}

			norm := 0.0
			for _, v := range vec {
				norm += v * v
			}
			norm = math.Sqrt(norm + eps)
			clippedNorm := 0.0
			for i := range vec {
				vec[i] /= norm
				if vec[i] > 0.2 {
					vec[i] = 0.2
				}
				clippedNorm += vec[i] * vec[i]
			}
			clippedNorm = math.Sqrt(clippedNorm + eps)
			for _, v := range vec {
				features = append(features, v/clippedNorm)
			}
		}
	}
	return features
}

// renderHOG draws, for every cell and orientation bin, a centered line at
// the bin's angle with intensity proportional to the bin weight.
func renderHOG(hist []float64, cellsY, cellsX, orientations, cellSize int) *image.Gray {
	vis := raster.NewMap(cellsX*cellSize, cellsY*cellSize)
	radius := float64(cellSize) / 2

	for cy := 0; cy < cellsY; cy++ {
		for cx := 0; cx < cellsX; cx++ {
			centerX := float64(cx*cellSize) + radius
			centerY := float64(cy*cellSize) + radius
			cell := cy*cellsX + cx
			for o := 0; o < orientations; o++ {
				weight := hist[cell*orientations+o]
				if weight == 0 {
					continue
				}
				angle := (float64(o) + 0.5) / float64(orientations) * math.Pi
				dy := radius * math.Sin(angle)
				dx := radius * math.Cos(angle)
				drawLineAdd(vis,
					int(centerY-dy), int(centerX-dx),
					int(centerY+dy), int(centerX+dx), weight)
			}
		}
	}
	return vis.ToGray8()
}

// drawLineAdd accumulates v along the Bresenham line (r0,c0)-(r1,c1).
func drawLineAdd(m *raster.Map, r0, c0, r1, c1 int, v float64) {
	dr := r1 - r0
	if dr < 0 {
		dr = -dr
	}
	dc := c1 - c0
	if dc < 0 {
		dc = -dc
	}
	sr, sc := 1, 1
	if r0 > r1 {
		sr = -1
	}
	if c0 > c1 {
		sc = -1
	}
	err := dc - dr
	r, c := r0, c0
	for {
		if c >= 0 && c < m.W && r >= 0 && r < m.H {
			m.Pix[r*m.W+c] += v
		}
		if r == r1 && c == c1 {
			break
		}
		e2 := 2 * err
		if e2 > -dr {
			err -= dr
			c += sc
		}
		if e2 < dc {
			err += dc
			r += sr
		}
	}
}
