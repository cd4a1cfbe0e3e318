package vegindex

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phenotrace/internal/band"
	"phenotrace/internal/raster"
)

func uniformStack(w, h int, green, red, redEdge, nir float64) band.Stack {
	return band.Stack{
		band.Green:   raster.NewMapFilled(w, h, green),
		band.Red:     raster.NewMapFilled(w, h, red),
		band.RedEdge: raster.NewMapFilled(w, h, redEdge),
		band.NIR:     raster.NewMapFilled(w, h, nir),
	}
}

func fullMask(w, h int) *raster.Mask {
	mask := raster.NewMask(w, h)
	for i := range mask.Pix {
		mask.Pix[i] = raster.Foreground
	}
	return mask
}

func TestNDVIZeroWhenBandsEqual(t *testing.T) {
	stack := uniformStack(4, 4, 10, 50, 30, 50) // nir == red
	res := Compute(stack, fullMask(4, 4), nil)

	ndvi, ok := res.Maps["NDVI"]
	require.True(t, ok)
	for _, v := range ndvi.Pix {
		assert.InDelta(t, 0, v, 1e-9)
	}
}

func TestComputeNaNOutsideMask(t *testing.T) {
	stack := uniformStack(2, 2, 10, 20, 30, 40)
	mask := raster.NewMask(2, 2)
	mask.Set(1, 1, true)

	res := Compute(stack, mask, nil)
	ndvi := res.Maps["NDVI"]
	require.NotNil(t, ndvi)
	assert.True(t, math.IsNaN(ndvi.Pix[0]))
	assert.True(t, math.IsNaN(ndvi.Pix[1]))
	assert.True(t, math.IsNaN(ndvi.Pix[2]))
	assert.False(t, math.IsNaN(ndvi.Pix[3]))
}

func TestComputeSkipsMissingBand(t *testing.T) {
	stack := uniformStack(2, 2, 10, 20, 30, 40)
	delete(stack, band.NIR)

	res := Compute(stack, fullMask(2, 2), nil)
	_, ok := res.Maps["NDVI"]
	assert.False(t, ok)
	assert.Contains(t, res.Skipped, "NDVI")

	// Indices that only need green and red still evaluate.
	_, ok = res.Maps["NGRDI"]
	assert.True(t, ok)
}

func TestRegistryComplete(t *testing.T) {
	assert.Len(t, Registry(), 48)
	for name, idx := range Registry() {
		assert.NotEmpty(t, idx.Bands, name)
		assert.NotNil(t, idx.Eval, name)
	}
}

func TestZeroDenominatorStaysFinite(t *testing.T) {
	stack := uniformStack(2, 2, 0, 0, 0, 0)
	res := Compute(stack, fullMask(2, 2), nil)
	for name, m := range res.Maps {
		for _, v := range m.Pix {
			assert.False(t, math.IsInf(v, 0), name)
		}
	}
}

func TestFeaturesEmptyMask(t *testing.T) {
	stack := uniformStack(4, 4, 10, 20, 30, 40)
	mask := raster.NewMask(4, 4)

	res := Compute(stack, mask, nil)
	features := res.Features(mask)
	assert.Empty(t, features, "zero-foreground mask emits no records")
}

func TestVisualizeNaNIsWhite(t *testing.T) {
	m := raster.NewMapFilled(2, 2, math.NaN())
	m.Pix[0] = 0.5
	mask := raster.NewMask(2, 2)
	mask.Set(0, 0, true)

	img := Visualize("NDVI", m, mask)
	require.NotNil(t, img)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	assert.Equal(t, white, img.RGBAAt(1, 0))
	assert.NotEqual(t, white, img.RGBAAt(0, 0))
}
