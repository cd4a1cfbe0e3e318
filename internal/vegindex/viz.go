package vegindex

import (
	"image"
	"image/color"
	"math"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/palette/moreland"

	"phenotrace/internal/raster"
)

// rangeSpec is the fixed visualization value range of one index. A nil
// bound is inferred from the in-mask data.
type rangeSpec struct {
	ramp       []color.Color
	vmin, vmax *float64
}

func fp(v float64) *float64 { return &v }

// rampSteps is the number of discrete colors rendered per color map.
const rampSteps = 256

var (
	rampRdYlGn  = brewerRamp(brewer.TypeDiverging, "RdYlGn")
	rampYlGn    = brewerRamp(brewer.TypeSequential, "YlGn")
	rampGreens  = brewerRamp(brewer.TypeSequential, "Greens")
	rampBlues   = brewerRamp(brewer.TypeSequential, "Blues")
	rampReds    = brewerRamp(brewer.TypeSequential, "Reds")
	rampViridis = colorMapRamp(moreland.Kindlmann())
	rampCividis = colorMapRamp(moreland.ExtendedKindlmann())
	rampMagma   = colorMapRamp(moreland.BlackBody())
	rampInferno = colorMapRamp(moreland.ExtendedBlackBody())
	rampPlasma  = colorMapRamp(moreland.SmoothBlueRed())
)

// brewerRamp interpolates a brewer palette up to rampSteps colors.
func brewerRamp(typ brewer.PaletteType, name string) []color.Color {
	pal, err := brewer.GetPalette(typ, name, 9)
	if err != nil {
		// Unknown palette names are a programming error; fall back to a
		// neutral gray ramp so visualization still renders.
		return grayRamp()
	}
	base := pal.Colors()
	out := make([]color.Color, rampSteps)
	for i := range out {
		t := float64(i) / float64(rampSteps-1) * float64(len(base)-1)
		lo := int(t)
		hi := lo + 1
		if hi >= len(base) {
			hi = len(base) - 1
		}
		out[i] = lerpColor(base[lo], base[hi], t-float64(lo))
	}
	return out
}

func colorMapRamp(cm palette.ColorMap) []color.Color {
	cm.SetMin(0)
	cm.SetMax(1)
	return cm.Palette(rampSteps).Colors()
}

func grayRamp() []color.Color {
	out := make([]color.Color, rampSteps)
	for i := range out {
		out[i] = color.Gray{Y: uint8(i)}
	}
	return out
}

func lerpColor(a, b color.Color, t float64) color.Color {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	lerp := func(x, y uint32) uint8 {
		return uint8((float64(x)*(1-t) + float64(y)*t) / 257.0)
	}
	return color.RGBA{R: lerp(ar, br), G: lerp(ag, bg), B: lerp(ab, bb), A: 255}
}

// rangeSpecs preserves the original per-index colormap and value-range
// table. Indices absent from the table render with the viridis-equivalent
// ramp over the in-mask data range.
var rangeSpecs = map[string]rangeSpec{
	"NDVI":       {rampRdYlGn, fp(-1), fp(1)},
	"GNDVI":      {rampRdYlGn, fp(-1), fp(1)},
	"NDRE":       {rampRdYlGn, fp(-1), fp(1)},
	"GRNDVI":     {rampRdYlGn, fp(-1), fp(1)},
	"TNDVI":      {rampRdYlGn, fp(0), fp(1)},
	"MGRVI":      {rampRdYlGn, fp(-1), fp(1)},
	"GRVI":       {rampYlGn, fp(0), nil},
	"NGRDI":      {rampRdYlGn, fp(-1), fp(1)},
	"MSAVI":      {rampYlGn, fp(0), fp(1)},
	"OSAVI":      {rampYlGn, fp(0), fp(1)},
	"TSAVI":      {rampYlGn, fp(0), fp(1)},
	"GSAVI":      {rampYlGn, fp(0), fp(1)},
	"GOSAVI":     {rampYlGn, fp(0), fp(1)},
	"GDVI":       {rampGreens, fp(0), nil},
	"NDWI":       {rampBlues, fp(-1), fp(1)},
	"DSWI4":      {rampBlues, fp(0), nil},
	"CIRE":       {rampViridis, fp(0), fp(10)},
	"LCI":        {rampRdYlGn, fp(-1), fp(1)},
	"CIgreen":    {rampViridis, fp(0), fp(5)},
	"MCARI":      {rampViridis, fp(0), fp(1.5)},
	"MCARI1":     {rampViridis, fp(-2), fp(2)},
	"MCARI2":     {rampViridis, fp(0), fp(1.5)},
	"MTVI1":      {rampViridis, fp(-2), fp(2)},
	"MTVI2":      {rampViridis, fp(0), fp(1.5)},
	"CVI":        {rampPlasma, fp(0), fp(10)},
	"ARI":        {rampMagma, fp(0), fp(1)},
	"ARI2":       {rampMagma, fp(0), nil},
	"DVI":        {rampGreens, fp(0), nil},
	"WDVI":       {rampGreens, fp(0), nil},
	"SR":         {rampViridis, fp(0), fp(10)},
	"MSR":        {rampViridis, fp(0), fp(5)},
	"PVI":        {rampCividis, nil, nil},
	"GEMI":       {rampCividis, fp(0), fp(1)},
	"ExR":        {rampReds, fp(-1), fp(1)},
	"RI":         {rampReds, fp(-1), fp(1)},
	"RRI1":       {rampReds, fp(0), fp(10)},
	"RRI2":       {rampReds, fp(0), fp(10)},
	"RRI":        {rampReds, fp(0), fp(10)},
	"AVI":        {rampMagma, fp(0), fp(1)},
	"SIPI2":      {rampInferno, fp(0), fp(1)},
	"TCARI":      {rampViridis, fp(0), fp(2)},
	"TCARIOSAVI": {rampViridis, fp(0), fp(1)},
	"CCCI":       {rampPlasma, fp(0), fp(2)},
	"RDVI":       {rampRdYlGn, fp(0), nil},
	"NLI":        {rampCividis, fp(0), fp(1)},
	"BIXS":       {rampPlasma, fp(0), nil},
	"IPVI":       {rampYlGn, fp(0), fp(1)},
	"EVI2":       {rampRdYlGn, fp(0), fp(2)},
}

// Visualize renders an index map as an 8-bit color image using the
// index's fixed value range, inferring missing bounds from in-mask data.
// NaN pixels render white.
func Visualize(name string, m *raster.Map, mask *raster.Mask) *image.RGBA {
	spec, ok := rangeSpecs[name]
	if !ok {
		spec = rangeSpec{ramp: rampViridis}
	}

	vmin, vmax := 0.0, 1.0
	dmin, dmax, hasData := m.MaskedMinMax(mask)
	switch {
	case spec.vmin != nil && spec.vmax != nil:
		vmin, vmax = *spec.vmin, *spec.vmax
	case spec.vmin != nil:
		vmin = *spec.vmin
		vmax = dmax
	case spec.vmax != nil:
		vmin = dmin
		vmax = *spec.vmax
	default:
		vmin, vmax = dmin, dmax
	}
	if !hasData && (spec.vmin == nil || spec.vmax == nil) {
		vmin, vmax = 0, 1
	}
	if vmax <= vmin {
		vmax = vmin + 1
	}

	img := image.NewRGBA(image.Rect(0, 0, m.W, m.H))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			v := m.Pix[y*m.W+x]
			if math.IsNaN(v) {
				img.SetRGBA(x, y, white)
				continue
			}
			t := (v - vmin) / (vmax - vmin)
			if t < 0 {
				t = 0
			}
			if t > 1 {
				t = 1
			}
			c := spec.ramp[int(t*float64(rampSteps-1))]
			r, g, b, _ := c.RGBA()
			img.SetRGBA(x, y, color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255})
		}
	}
	return img
}
