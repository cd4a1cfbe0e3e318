package raster

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ResizeGrayNearest resizes an 8-bit grayscale image to w x h using
// OpenCV's nearest-neighbor interpolation, the same resampling the
// original pipeline uses to repair dimension mismatches.
func ResizeGrayNearest(g *image.Gray, w, h int) (*image.Gray, error) {
	b := g.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == w && sh == h {
		out := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+w], g.Pix[(b.Min.Y+y)*g.Stride+b.Min.X:(b.Min.Y+y)*g.Stride+b.Min.X+w])
		}
		return out, nil
	}

	data := make([]byte, sw*sh)
	for y := 0; y < sh; y++ {
		copy(data[y*sw:(y+1)*sw], g.Pix[(b.Min.Y+y)*g.Stride+b.Min.X:(b.Min.Y+y)*g.Stride+b.Min.X+sw])
	}

	src, err := gocv.NewMatFromBytes(sh, sw, gocv.MatTypeCV8U, data)
	if err != nil {
		return nil, fmt.Errorf("building source mat: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Pt(w, h), 0, 0, gocv.InterpolationNearestNeighbor)

	out := image.NewGray(image.Rect(0, 0, w, h))
	resized := dst.ToBytes()
	for y := 0; y < h; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+w], resized[y*w:(y+1)*w])
	}
	return out, nil
}

// ResizeNearest resizes the mask to w x h via OpenCV nearest-neighbor
// resampling, preserving the binary 0/255 value set.
func (k *Mask) ResizeNearest(w, h int) (*Mask, error) {
	if w == k.W && h == k.H {
		return k.Clone(), nil
	}
	g, err := ResizeGrayNearest(k.ToGray(), w, h)
	if err != nil {
		return nil, fmt.Errorf("resizing mask: %w", err)
	}
	return MaskFromGray(g), nil
}
