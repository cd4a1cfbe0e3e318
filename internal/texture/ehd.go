package texture

import (
	"image"
	"math"

	"phenotrace/internal/raster"
	"phenotrace/pkg/geometry"
)

// EHD holds per-orientation edge-density planes and the dominant-bin map.
// The last bin is the no-edge class for pixels whose best response falls
// below the edge threshold.
type EHD struct {
	Bins []*raster.Map
	Map  *image.Gray
}

// EdgeHistogram correlates the grayscale plane with a bank of rotated edge
// kernels, assigns each pixel to its strongest orientation (or the no-edge
// bin below threshold), and average-pools the per-bin indicator planes.
func EdgeHistogram(gray *raster.Map, opts Options) *EHD {
	kernels := edgeKernels(opts.EHDKernelSize, opts.EHDAngleStep)
	nBins := len(kernels) + 1

	scaled := raster.NewMap(gray.W, gray.H)
	for i, v := range gray.Pix {
		scaled.Pix[i] = v / 255.0
	}

	responses := make([]*raster.Map, len(kernels))
	for k, kern := range kernels {
		responses[k] = crossCorrelate(scaled, kern, opts.EHDDilation)
	}
	if len(responses) == 0 {
		return &EHD{Bins: nil, Map: image.NewGray(image.Rect(0, 0, 0, 0))}
	}

	rw, rh := responses[0].W, responses[0].H
	assign := make([]int, rw*rh)
	for i := range assign {
		best, bestVal := 0, responses[0].Pix[i]
		for k := 1; k < len(responses); k++ {
			if responses[k].Pix[i] > bestVal {
				best, bestVal = k, responses[k].Pix[i]
			}
		}
		if bestVal < opts.EHDThreshold {
			best = nBins - 1
		}
		assign[i] = best
	}

	bins := make([]*raster.Map, nBins)
	for b := 0; b < nBins; b++ {
		indicator := raster.NewMap(rw, rh)
		for i, a := range assign {
			if a == b {
				indicator.Pix[i] = 1
			}
		}
		bins[b] = avgPool(indicator, opts.EHDPoolSize)
	}

	// Dominant bin per pooled pixel, spread over the gray range.
	pw, ph := bins[0].W, bins[0].H
	dominant := image.NewGray(image.Rect(0, 0, pw, ph))
	for i := 0; i < pw*ph; i++ {
		best, bestVal := 0, bins[0].Pix[i]
		for b := 1; b < nBins; b++ {
			if bins[b].Pix[i] > bestVal {
				best, bestVal = b, bins[b].Pix[i]
			}
		}
		dominant.Pix[i] = uint8(best * 255 / (nBins - 1))
	}
	return &EHD{Bins: bins, Map: dominant}
}

// edgeKernels builds the rotated kernel bank. The base is the horizontal
// edge kernel outer([1,0,-1],[1,2,1]); larger odd sizes come from
// convolving with the smoothing kernel outer([1,2,1],[1,2,1]).
func edgeKernels(size, angleStep int) []*raster.Map {
	base := kernelFromOuter([]float64{1, 0, -1}, []float64{1, 2, 1})
	for base.W < size {
		smooth := kernelFromOuter([]float64{1, 2, 1}, []float64{1, 2, 1})
		base = convolveFull(base, smooth)
	}

	var kernels []*raster.Map
	for angle := 0; angle < 360; angle += angleStep {
		kernels = append(kernels, rotateKernel(base, float64(angle)*math.Pi/180))
	}
	return kernels
}

func kernelFromOuter(col, row []float64) *raster.Map {
	k := raster.NewMap(len(row), len(col))
	for y, cv := range col {
		for x, rv := range row {
			k.Pix[y*k.W+x] = cv * rv
		}
	}
	return k
}

// convolveFull is a full 2D convolution of two small kernels.
func convolveFull(a, b *raster.Map) *raster.Map {
	out := raster.NewMap(a.W+b.W-1, a.H+b.H-1)
	for ay := 0; ay < a.H; ay++ {
		for ax := 0; ax < a.W; ax++ {
			av := a.Pix[ay*a.W+ax]
			if av == 0 {
				continue
			}
			for by := 0; by < b.H; by++ {
				for bx := 0; bx < b.W; bx++ {
					out.Pix[(ay+by)*out.W+ax+bx] += av * b.Pix[by*b.W+bx]
				}
			}
		}
	}
	return out
}

// rotateKernel resamples the kernel about its center by the given angle,
// mapping each destination cell back through the inverse rotation with
// bilinear interpolation.
func rotateKernel(k *raster.Map, radians float64) *raster.Map {
	inv, ok := geometry.Rotation(radians).Inverse()
	if !ok {
		return k.Clone()
	}
	cx := float64(k.W-1) / 2
	cy := float64(k.H-1) / 2

	out := raster.NewMap(k.W, k.H)
	for y := 0; y < k.H; y++ {
		for x := 0; x < k.W; x++ {
			src := inv.Apply(geometry.Point2D{X: float64(x) - cx, Y: float64(y) - cy})
			sx := src.X + cx
			sy := src.Y + cy
			if sx < 0 || sy < 0 || sx > float64(k.W-1) || sy > float64(k.H-1) {
				continue
			}
			out.Pix[y*out.W+x] = sampleBilinear(k, sx, sy)
		}
	}
	return out
}

// crossCorrelate slides the kernel over the plane at the given dilation,
// keeping only fully-valid positions.
func crossCorrelate(m, kern *raster.Map, dilation int) *raster.Map {
	if dilation < 1 {
		dilation = 1
	}
	reachX := (kern.W - 1) * dilation
	reachY := (kern.H - 1) * dilation
	ow := m.W - reachX
	oh := m.H - reachY
	if ow < 1 || oh < 1 {
		return raster.NewMap(0, 0)
	}

	out := raster.NewMap(ow, oh)
	for y := 0; y < oh; y++ {
		for x := 0; x < ow; x++ {
			sum := 0.0
			for ky := 0; ky < kern.H; ky++ {
				for kx := 0; kx < kern.W; kx++ {
					sum += kern.Pix[ky*kern.W+kx] * m.Pix[(y+ky*dilation)*m.W+x+kx*dilation]
				}
			}
			out.Pix[y*ow+x] = sum
		}
	}
	return out
}

// avgPool is a stride-1 valid average pool.
func avgPool(m *raster.Map, size int) *raster.Map {
	ow := m.W - size + 1
	oh := m.H - size + 1
	if ow < 1 || oh < 1 {
		return m.Clone()
	}
	inv := 1.0 / float64(size*size)

	out := raster.NewMap(ow, oh)
	for y := 0; y < oh; y++ {
		for x := 0; x < ow; x++ {
			sum := 0.0
			for ky := 0; ky < size; ky++ {
				for kx := 0; kx < size; kx++ {
					sum += m.Pix[(y+ky)*m.W+x+kx]
				}
			}
			out.Pix[y*ow+x] = sum * inv
		}
	}
	return out
}
