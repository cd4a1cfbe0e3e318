package raster

import (
	"image"

	"phenotrace/pkg/geometry"
)

// Mask pixel values.
const (
	Background uint8 = 0
	Foreground uint8 = 255
)

// Mask is a binary plane with values in {0, 255}, row-major.
type Mask struct {
	W, H int
	Pix  []uint8
}

// NewMask creates an all-background Mask of the given size.
func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, Pix: make([]uint8, w*h)}
}

// At returns the pixel at (x, y). Out-of-bounds reads are background.
func (k *Mask) At(x, y int) uint8 {
	if x < 0 || x >= k.W || y < 0 || y >= k.H {
		return Background
	}
	return k.Pix[y*k.W+x]
}

// Set sets the pixel at (x, y). Any nonzero value is stored as Foreground.
func (k *Mask) Set(x, y int, on bool) {
	if x < 0 || x >= k.W || y < 0 || y >= k.H {
		return
	}
	if on {
		k.Pix[y*k.W+x] = Foreground
	} else {
		k.Pix[y*k.W+x] = Background
	}
}

// Clone returns a deep copy.
func (k *Mask) Clone() *Mask {
	out := &Mask{W: k.W, H: k.H, Pix: make([]uint8, len(k.Pix))}
	copy(out.Pix, k.Pix)
	return out
}

// ForegroundCount returns the number of foreground pixels.
func (k *Mask) ForegroundCount() int {
	n := 0
	for _, v := range k.Pix {
		if v == Foreground {
			n++
		}
	}
	return n
}

// FillRect sets every pixel inside r (clipped to the mask) to the given state.
func (k *Mask) FillRect(r geometry.RectInt, on bool) {
	r = r.Clip(k.W, k.H)
	for y := r.Y; y < r.Y+r.Height; y++ {
		for x := r.X; x < r.X+r.Width; x++ {
			k.Set(x, y, on)
		}
	}
}

// KeepRect clears every pixel outside r.
func (k *Mask) KeepRect(r geometry.RectInt) {
	r = r.Clip(k.W, k.H)
	for y := 0; y < k.H; y++ {
		for x := 0; x < k.W; x++ {
			if !r.Contains(x, y) {
				k.Pix[y*k.W+x] = Background
			}
		}
	}
}

// ToGray converts the mask to a stdlib grayscale image.
func (k *Mask) ToGray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, k.W, k.H))
	for y := 0; y < k.H; y++ {
		copy(g.Pix[y*g.Stride:y*g.Stride+k.W], k.Pix[y*k.W:(y+1)*k.W])
	}
	return g
}

// MaskFromGray builds a Mask from a grayscale image. Any nonzero pixel
// becomes foreground.
func MaskFromGray(g *image.Gray) *Mask {
	b := g.Bounds()
	k := NewMask(b.Dx(), b.Dy())
	for y := 0; y < k.H; y++ {
		for x := 0; x < k.W; x++ {
			if g.GrayAt(b.Min.X+x, b.Min.Y+y).Y != 0 {
				k.Pix[y*k.W+x] = Foreground
			}
		}
	}
	return k
}
