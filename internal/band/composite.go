package band

import (
	"image"
	"image/color"
	"math"

	"phenotrace/internal/raster"
)

// Composite is the 3-channel 8-bit display image built from the (green,
// red_edge, red) bands, stored in that channel order. It doubles as the
// segmentation-model input and is never edited in place once built.
type Composite struct {
	W, H int
	// Pix holds three bytes per pixel: green, red_edge, red.
	Pix []uint8
}

// NewComposite stretches the three bands to 8 bits with a single global
// min-max over all of them, so relative band intensity is preserved. A
// constant stack stretches to all zeros rather than dividing by zero.
func NewComposite(green, redEdge, red *raster.Map) *Composite {
	w, h := green.W, green.H
	c := &Composite{W: w, H: h, Pix: make([]uint8, w*h*3)}

	min, max := math.Inf(1), math.Inf(-1)
	for _, plane := range []*raster.Map{green, redEdge, red} {
		for _, v := range plane.Pix {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}

	scale := 255.0 / (max - min + 1e-6)
	for i := 0; i < w*h; i++ {
		c.Pix[i*3+0] = stretchByte(green.Pix[i], min, scale)
		c.Pix[i*3+1] = stretchByte(redEdge.Pix[i], min, scale)
		c.Pix[i*3+2] = stretchByte(red.Pix[i], min, scale)
	}
	return c
}

func stretchByte(v, min, scale float64) uint8 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	s := (v - min) * scale
	if s <= 0 {
		return 0
	}
	if s >= 255 {
		return 255
	}
	return uint8(s)
}

// GreenAt returns the green channel at (x, y).
func (c *Composite) GreenAt(x, y int) uint8 { return c.Pix[(y*c.W+x)*3+0] }

// RedEdgeAt returns the red_edge channel at (x, y).
func (c *Composite) RedEdgeAt(x, y int) uint8 { return c.Pix[(y*c.W+x)*3+1] }

// RedAt returns the red channel at (x, y).
func (c *Composite) RedAt(x, y int) uint8 { return c.Pix[(y*c.W+x)*3+2] }

// Size returns the composite dimensions.
func (c *Composite) Size() (w, h int) { return c.W, c.H }

// Gray converts the composite to a float luminance plane using the same
// weighting the original pipeline applies to its channel layout:
// 0.299*red + 0.587*red_edge + 0.114*green.
func (c *Composite) Gray() *raster.Map {
	m := raster.NewMap(c.W, c.H)
	for i := 0; i < c.W*c.H; i++ {
		g := float64(c.Pix[i*3+0])
		re := float64(c.Pix[i*3+1])
		r := float64(c.Pix[i*3+2])
		m.Pix[i] = 0.299*r + 0.587*re + 0.114*g
	}
	return m
}

// RGB renders the composite in display channel order (red, red_edge,
// green mapped to R, G, B).
func (c *Composite) RGB() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.W, c.H))
	for y := 0; y < c.H; y++ {
		for x := 0; x < c.W; x++ {
			i := (y*c.W + x) * 3
			img.SetRGBA(x, y, color.RGBA{
				R: c.Pix[i+2],
				G: c.Pix[i+1],
				B: c.Pix[i+0],
				A: 255,
			})
		}
	}
	return img
}

// RGBMasked renders the composite with background pixels zeroed, the
// canonical form the morphology stage analyzes.
func (c *Composite) RGBMasked(mask *raster.Mask) *image.RGBA {
	img := c.RGB()
	for y := 0; y < c.H; y++ {
		for x := 0; x < c.W; x++ {
			if mask.At(x, y) != raster.Foreground {
				img.SetRGBA(x, y, color.RGBA{A: 255})
			}
		}
	}
	return img
}

// GrayMasked returns the luminance plane with background pixels zeroed.
func (c *Composite) GrayMasked(mask *raster.Mask) *raster.Map {
	m := c.Gray()
	for i := range m.Pix {
		if mask.Pix[i] != raster.Foreground {
			m.Pix[i] = 0
		}
	}
	return m
}
