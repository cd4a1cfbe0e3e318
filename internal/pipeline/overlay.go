package pipeline

import (
	"image"
	"image/color"

	"phenotrace/internal/band"
	"phenotrace/internal/raster"
)

// Overlay renders the mask over a brightened composite as a quick visual
// check of the selection, foreground pixels tinted green.
func Overlay(comp *band.Composite, mask *raster.Mask) *image.RGBA {
	img := comp.RGB()
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			c.R = brighten(c.R)
			c.G = brighten(c.G)
			c.B = brighten(c.B)
			if mask != nil && mask.At(x, y) == raster.Foreground {
				c.R /= 2
				c.G = 255 - (255-c.G)/2
				c.B /= 2
			}
			img.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}
	return img
}

func brighten(v uint8) uint8 {
	scaled := uint16(v) * 3 / 2
	if scaled > 255 {
		return 255
	}
	return uint8(scaled)
}
