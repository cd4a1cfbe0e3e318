package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phenotrace/internal/raster"
)

func fullMask(w, h int) *raster.Mask {
	mask := raster.NewMask(w, h)
	for i := range mask.Pix {
		mask.Pix[i] = raster.Foreground
	}
	return mask
}

func TestSummarizeBasic(t *testing.T) {
	m := raster.NewMap(2, 2)
	m.Pix = []float64{1, 2, 3, 4}

	s, ok := Summarize(m, fullMask(2, 2))
	require.True(t, ok)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), s.Std, 1e-12, "population deviation")
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 0.0, s.NaNFraction)
	assert.LessOrEqual(t, s.Q25, s.Median)
	assert.LessOrEqual(t, s.Median, s.Q75)
}

func TestSummarizeConstant(t *testing.T) {
	m := raster.NewMapFilled(3, 3, 7)
	s, ok := Summarize(m, fullMask(3, 3))
	require.True(t, ok)
	assert.Equal(t, 7.0, s.Mean)
	assert.Equal(t, 0.0, s.Std)
	assert.Equal(t, 7.0, s.Median)
	assert.Equal(t, 7.0, s.Q25)
	assert.Equal(t, 7.0, s.Q75)
}

func TestSummarizeEmptyMask(t *testing.T) {
	m := raster.NewMapFilled(4, 4, 1)
	_, ok := Summarize(m, raster.NewMask(4, 4))
	assert.False(t, ok, "zero selected pixels emits no record")
}

func TestSummarizeMaskScopesPixels(t *testing.T) {
	m := raster.NewMap(2, 2)
	m.Pix = []float64{1, 100, 100, 100}
	mask := raster.NewMask(2, 2)
	mask.Set(0, 0, true)

	s, ok := Summarize(m, mask)
	require.True(t, ok)
	assert.Equal(t, 1.0, s.Mean)
	assert.Equal(t, 1.0, s.Max)
}

func TestSummarizeNaNFraction(t *testing.T) {
	m := raster.NewMap(2, 2)
	m.Pix = []float64{1, math.NaN(), 3, math.NaN()}

	s, ok := Summarize(m, fullMask(2, 2))
	require.True(t, ok)
	assert.Equal(t, 0.5, s.NaNFraction)
	assert.InDelta(t, 2.0, s.Mean, 1e-12)
}

func TestSummarizeAllNaN(t *testing.T) {
	m := raster.NewMapFilled(2, 2, math.NaN())
	s, ok := Summarize(m, fullMask(2, 2))
	require.True(t, ok, "a fully undefined map still yields a record")
	assert.Equal(t, 1.0, s.NaNFraction)
	assert.True(t, math.IsNaN(s.Mean))
	assert.True(t, math.IsNaN(s.Median))
}

func TestSummarizeResizesToMask(t *testing.T) {
	m := raster.NewMapFilled(2, 2, 9)
	s, ok := Summarize(m, fullMask(4, 4))
	require.True(t, ok)
	assert.Equal(t, 9.0, s.Mean)
}

func TestFlattenKeys(t *testing.T) {
	rec := Record{}
	Summary{Mean: 1, Std: 2, NaNFraction: 0.25}.Flatten("ndvi", rec)
	assert.Equal(t, 1.0, rec["ndvi_mean"])
	assert.Equal(t, 2.0, rec["ndvi_std"])
	assert.Equal(t, 0.25, rec["ndvi_nan_fraction"])
	assert.Len(t, rec, 8)
}
