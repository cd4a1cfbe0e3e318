package texture

import (
	"phenotrace/internal/raster"
)

const lacEpsilon = 1e-6

// BoxCounter computes a gliding-box count plane for a grayscale image at a
// given window size. Implementations typically wrap an external fractal
// analysis tool; the engine treats the result as opaque.
type BoxCounter interface {
	Transform(gray *raster.Map, window int) (*raster.Map, error)
}

// Lacunarity computes the normalized-variance lacunarity plane at a single
// window size. Each pixel holds var/mean^2 + 1 of its window, or 0 where
// the local mean vanishes.
func Lacunarity(gray *raster.Map, window int) *raster.Map {
	m1 := boxMean(gray, window)
	sq := raster.NewMap(gray.W, gray.H)
	for i, v := range gray.Pix {
		sq.Pix[i] = v * v
	}
	m2 := boxMean(sq, window)

	out := raster.NewMap(gray.W, gray.H)
	for i := range out.Pix {
		mean := m1.Pix[i]
		if mean <= lacEpsilon {
			out.Pix[i] = 0
			continue
		}
		variance := m2.Pix[i] - mean*mean
		out.Pix[i] = variance/(mean*mean+lacEpsilon) + 1
	}
	return out
}

// MultiScaleLacunarity averages lacunarity planes over three window sizes
// derived from the base window: half (at least 3), the window itself, and
// double.
func MultiScaleLacunarity(gray *raster.Map, window int) *raster.Map {
	windows := []int{window / 2, window, window * 2}
	if windows[0] < 3 {
		windows[0] = 3
	}

	out := raster.NewMap(gray.W, gray.H)
	for _, w := range windows {
		plane := Lacunarity(gray, w)
		for i, v := range plane.Pix {
			out.Pix[i] += v
		}
	}
	n := float64(len(windows))
	for i := range out.Pix {
		out.Pix[i] /= n
	}
	return out
}

// boxMean is a separable box filter with reflected borders. Even window
// sizes split the reach as left=w/2, right=w-1-w/2.
func boxMean(m *raster.Map, window int) *raster.Map {
	left := window / 2
	right := window - 1 - left
	inv := 1.0 / float64(window)

	// Horizontal pass.
	tmp := raster.NewMap(m.W, m.H)
	for y := 0; y < m.H; y++ {
		row := m.Pix[y*m.W : (y+1)*m.W]
		for x := 0; x < m.W; x++ {
			sum := 0.0
			for k := x - left; k <= x+right; k++ {
				sum += row[reflectIndex(k, m.W)]
			}
			tmp.Pix[y*m.W+x] = sum * inv
		}
	}

	// Vertical pass.
	out := raster.NewMap(m.W, m.H)
	for x := 0; x < m.W; x++ {
		for y := 0; y < m.H; y++ {
			sum := 0.0
			for k := y - left; k <= y+right; k++ {
				sum += tmp.Pix[reflectIndex(k, m.H)*m.W+x]
			}
			out.Pix[y*m.W+x] = sum * inv
		}
	}
	return out
}

// reflectIndex mirrors an out-of-range index without repeating the border
// sample.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i = ((i % period) + period) % period
	if i >= n {
		i = period - i
	}
	return i
}
