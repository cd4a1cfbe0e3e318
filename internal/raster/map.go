// Package raster provides the float and binary pixel planes the analysis
// pipeline operates on. A Map is a single-band float64 plane where NaN
// marks pixels outside the mask or numerically undefined results. A Mask
// is a binary 0/255 plane.
package raster

import (
	"math"
)

// Map is a single-band float64 image plane stored in row-major order.
type Map struct {
	W, H int
	Pix  []float64
}

// NewMap creates a zero-filled Map of the given size.
func NewMap(w, h int) *Map {
	return &Map{W: w, H: h, Pix: make([]float64, w*h)}
}

// NewMapFilled creates a Map with every pixel set to v.
func NewMapFilled(w, h int, v float64) *Map {
	m := NewMap(w, h)
	for i := range m.Pix {
		m.Pix[i] = v
	}
	return m
}

// At returns the pixel at (x, y). Out-of-bounds reads return NaN.
func (m *Map) At(x, y int) float64 {
	if x < 0 || x >= m.W || y < 0 || y >= m.H {
		return math.NaN()
	}
	return m.Pix[y*m.W+x]
}

// Set sets the pixel at (x, y). Out-of-bounds writes are ignored.
func (m *Map) Set(x, y int, v float64) {
	if x < 0 || x >= m.W || y < 0 || y >= m.H {
		return
	}
	m.Pix[y*m.W+x] = v
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	out := &Map{W: m.W, H: m.H, Pix: make([]float64, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// MinMax returns the finite minimum and maximum pixel values. ok is false
// when the plane holds no finite pixel.
func (m *Map) MinMax() (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range m.Pix {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}

// MaskedMinMax returns the finite min and max over foreground pixels only.
func (m *Map) MaskedMinMax(mask *Mask) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for i, v := range m.Pix {
		if mask.Pix[i] != Foreground {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}

// ApplyMask sets every background pixel to NaN, in place.
func (m *Map) ApplyMask(mask *Mask) {
	for i := range m.Pix {
		if mask.Pix[i] != Foreground {
			m.Pix[i] = math.NaN()
		}
	}
}

// ResizeNearest returns the plane resampled to w x h with nearest-neighbor
// interpolation. NaN pixels survive the resample unchanged, which gocv's
// Mat round trip would not guarantee for float planes.
func (m *Map) ResizeNearest(w, h int) *Map {
	if w == m.W && h == m.H {
		return m.Clone()
	}
	out := NewMap(w, h)
	xr := float64(m.W) / float64(w)
	yr := float64(m.H) / float64(h)
	for y := 0; y < h; y++ {
		sy := int(float64(y) * yr)
		if sy >= m.H {
			sy = m.H - 1
		}
		for x := 0; x < w; x++ {
			sx := int(float64(x) * xr)
			if sx >= m.W {
				sx = m.W - 1
			}
			out.Pix[y*w+x] = m.Pix[sy*m.W+sx]
		}
	}
	return out
}
