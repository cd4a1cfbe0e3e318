package texture

import (
	"image"
	"math"

	"phenotrace/internal/raster"
)

// LocalBinaryPattern computes the rotation-invariant uniform local binary
// pattern transform of a grayscale plane. Each pixel compares p circularly
// sampled neighbors at the given radius against its center value; uniform
// patterns (at most two 0/1 transitions around the ring) map to their
// one-bit count, all others to p+1. The result is min-max rescaled to
// 8 bits.
func LocalBinaryPattern(gray *raster.Map, p int, radius float64) *image.Gray {
	codes := raster.NewMap(gray.W, gray.H)

	// Precompute ring sample offsets.
	dx := make([]float64, p)
	dy := make([]float64, p)
	for k := 0; k < p; k++ {
		angle := 2 * math.Pi * float64(k) / float64(p)
		dx[k] = radius * math.Cos(angle)
		dy[k] = -radius * math.Sin(angle)
	}

	bits := make([]bool, p)
	for y := 0; y < gray.H; y++ {
		for x := 0; x < gray.W; x++ {
			center := gray.Pix[y*gray.W+x]
			for k := 0; k < p; k++ {
				bits[k] = sampleBilinear(gray, float64(x)+dx[k], float64(y)+dy[k]) >= center
			}
			codes.Pix[y*gray.W+x] = float64(riuCode(bits))
		}
	}
	return codes.ToGray8()
}

// riuCode maps a ring of threshold bits to the rotation-invariant uniform
// code: the number of set bits for uniform patterns, p+1 otherwise.
func riuCode(bits []bool) int {
	p := len(bits)
	transitions := 0
	ones := 0
	for k := 0; k < p; k++ {
		if bits[k] {
			ones++
		}
		if bits[k] != bits[(k+1)%p] {
			transitions++
		}
	}
	if transitions <= 2 {
		return ones
	}
	return p + 1
}

// sampleBilinear reads the plane at fractional coordinates with edge
// clamping.
func sampleBilinear(m *raster.Map, x, y float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	v00 := atClamped(m, x0, y0)
	v10 := atClamped(m, x0+1, y0)
	v01 := atClamped(m, x0, y0+1)
	v11 := atClamped(m, x0+1, y0+1)

	top := v00*(1-fx) + v10*fx
	bottom := v01*(1-fx) + v11*fx
	return top*(1-fy) + bottom*fy
}

func atClamped(m *raster.Map, x, y int) float64 {
	if x < 0 {
		x = 0
	}
	if x >= m.W {
		x = m.W - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= m.H {
		y = m.H - 1
	}
	return m.Pix[y*m.W+x]
}
