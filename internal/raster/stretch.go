package raster

import (
	"image"
	"math"
)

// stretchEpsilon keeps the min-max stretch finite when a plane is constant:
// a zero range divides out to an all-zero image rather than crashing.
const stretchEpsilon = 1e-6

// ToGray8 stretches the plane to 8 bits using the global finite min and max.
// Non-finite pixels are coerced to 0 before the range is measured, matching
// the original capture pipeline's display conversion.
func (m *Map) ToGray8() *image.Gray {
	clean := make([]float64, len(m.Pix))
	for i, v := range m.Pix {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			clean[i] = 0
		} else {
			clean[i] = v
		}
	}

	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range clean {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if len(clean) == 0 {
		min, max = 0, 0
	}

	g := image.NewGray(image.Rect(0, 0, m.W, m.H))
	scale := 255.0 / (max - min + stretchEpsilon)
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			v := (clean[y*m.W+x] - min) * scale
			g.Pix[y*g.Stride+x] = clampUint8(v)
		}
	}
	return g
}

// StretchMasked stretches the plane to 8 bits using only the in-mask finite
// range. NaN pixels are filled with the in-mask minimum before stretching.
// A degenerate range (max == min) yields an all-zero image.
func (m *Map) StretchMasked(mask *Mask) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.W, m.H))
	min, max, ok := m.MaskedMinMax(mask)
	if !ok || max <= min {
		return g
	}
	scale := 255.0 / (max - min)
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			v := m.Pix[y*m.W+x]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = min
			}
			g.Pix[y*g.Stride+x] = clampUint8((v - min) * scale)
		}
	}
	return g
}

// FromGray converts a grayscale image to a float plane.
func FromGray(g *image.Gray) *Map {
	b := g.Bounds()
	m := NewMap(b.Dx(), b.Dy())
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			m.Pix[y*m.W+x] = float64(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
		}
	}
	return m
}

func clampUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
