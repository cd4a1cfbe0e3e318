// Package vegindex computes named spectral vegetation indices and their
// color-mapped visualizations from a reconstructed band stack.
package vegindex

import (
	"math"
	"sort"

	"phenotrace/internal/band"
)

// epsilon guards every denominator so ratio indices stay finite where a
// band goes to zero.
const epsilon = 1e-10

// soilFactor is the soil adjustment constant shared by the SAVI family.
const soilFactor = 0.16

// Index is one registered vegetation index: the spectral bands it needs,
// in evaluation order, and its elementwise formula.
type Index struct {
	Bands []string
	Eval  func(v ...float64) float64
}

// Registry returns the full static index registry keyed by name.
func Registry() map[string]Index {
	return registry
}

// Names returns all registered index names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named index definition.
func Lookup(name string) (Index, bool) {
	idx, ok := registry[name]
	return idx, ok
}

func clampMin(v, lo float64) float64 {
	if v < lo {
		return lo
	}
	return v
}

var registry = map[string]Index{
	"NDVI": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		nir, red := v[0], v[1]
		return (nir - red) / (nir + red + epsilon)
	}},
	"GNDVI": {Bands: []string{band.NIR, band.Green}, Eval: func(v ...float64) float64 {
		nir, green := v[0], v[1]
		return (nir - green) / (nir + green + epsilon)
	}},
	"NDRE": {Bands: []string{band.NIR, band.RedEdge}, Eval: func(v ...float64) float64 {
		nir, redEdge := v[0], v[1]
		return (nir - redEdge) / (nir + redEdge + epsilon)
	}},
	"GRNDVI": {Bands: []string{band.NIR, band.Green, band.Red}, Eval: func(v ...float64) float64 {
		nir, green, red := v[0], v[1], v[2]
		return (nir - (green + red)) / (nir + (green + red) + epsilon)
	}},
	"TNDVI": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		nir, red := v[0], v[1]
		return math.Sqrt(clampMin((nir-red)/(nir+red+epsilon)+0.5, 0))
	}},
	"MGRVI": {Bands: []string{band.Green, band.Red}, Eval: func(v ...float64) float64 {
		green, red := v[0], v[1]
		return (green*green - red*red) / (green*green + red*red + epsilon)
	}},
	"GRVI": {Bands: []string{band.NIR, band.Green}, Eval: func(v ...float64) float64 {
		nir, green := v[0], v[1]
		return nir / (green + epsilon)
	}},
	"NGRDI": {Bands: []string{band.Green, band.Red}, Eval: func(v ...float64) float64 {
		green, red := v[0], v[1]
		return (green - red) / (green + red + epsilon)
	}},
	"MSAVI": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		nir, red := v[0], v[1]
		return 0.5 * (2*nir + 1 - math.Sqrt((2*nir+1)*(2*nir+1)-8*(nir-red)))
	}},
	"OSAVI": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		nir, red := v[0], v[1]
		return (nir - red) / (nir + red + soilFactor + epsilon)
	}},
	"TSAVI": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		nir, red := v[0], v[1]
		const s, a, x = 0.33, 0.5, 1.5
		return (s * (nir - s*red - a)) / (a*nir + red - a*s + x*(1+s*s) + epsilon)
	}},
	"GSAVI": {Bands: []string{band.NIR, band.Green}, Eval: func(v ...float64) float64 {
		nir, green := v[0], v[1]
		const l = 0.5
		return (1 + l) * (nir - green) / (nir + green + l + epsilon)
	}},
	"GOSAVI": {Bands: []string{band.NIR, band.Green}, Eval: func(v ...float64) float64 {
		nir, green := v[0], v[1]
		return (nir - green) / (nir + green + 0.16 + epsilon)
	}},
	"GDVI": {Bands: []string{band.NIR, band.Green}, Eval: func(v ...float64) float64 {
		return v[0] - v[1]
	}},
	"NDWI": {Bands: []string{band.Green, band.NIR}, Eval: func(v ...float64) float64 {
		green, nir := v[0], v[1]
		return (green - nir) / (green + nir + epsilon)
	}},
	"DSWI4": {Bands: []string{band.Green, band.Red}, Eval: func(v ...float64) float64 {
		green, red := v[0], v[1]
		return green / (red + epsilon)
	}},
	"CIRE": {Bands: []string{band.NIR, band.RedEdge}, Eval: func(v ...float64) float64 {
		nir, redEdge := v[0], v[1]
		return nir/(redEdge+epsilon) - 1
	}},
	"LCI": {Bands: []string{band.NIR, band.RedEdge}, Eval: func(v ...float64) float64 {
		nir, redEdge := v[0], v[1]
		return (nir - redEdge) / (nir + redEdge + epsilon)
	}},
	"CIgreen": {Bands: []string{band.NIR, band.Green}, Eval: func(v ...float64) float64 {
		nir, green := v[0], v[1]
		return nir/(green+epsilon) - 1
	}},
	"MCARI": {Bands: []string{band.RedEdge, band.Red, band.Green}, Eval: func(v ...float64) float64 {
		redEdge, red, green := v[0], v[1], v[2]
		return ((redEdge - red) - 0.2*(redEdge-green)) * (redEdge / (red + epsilon))
	}},
	"MCARI1": {Bands: []string{band.NIR, band.Red, band.Green}, Eval: func(v ...float64) float64 {
		nir, red, green := v[0], v[1], v[2]
		return 1.2 * (2.5*(nir-red) - 1.3*(nir-green))
	}},
	"MCARI2": {Bands: []string{band.NIR, band.Red, band.Green}, Eval: func(v ...float64) float64 {
		nir, red, green := v[0], v[1], v[2]
		return (1.5 * (2.5*(nir-red) - 1.3*(nir-green))) /
			math.Sqrt((2*nir+1)*(2*nir+1)-(6*nir-5*math.Sqrt(red+epsilon)))
	}},
	"MTVI1": {Bands: []string{band.NIR, band.Red, band.Green}, Eval: func(v ...float64) float64 {
		nir, red, green := v[0], v[1], v[2]
		return 1.2 * (1.2*(nir-green) - 2.5*(red-green))
	}},
	"MTVI2": {Bands: []string{band.NIR, band.Red, band.Green}, Eval: func(v ...float64) float64 {
		nir, red, green := v[0], v[1], v[2]
		return (1.5 * (1.2*(nir-green) - 2.5*(red-green))) /
			math.Sqrt((2*nir+1)*(2*nir+1)-(6*nir-5*math.Sqrt(red+epsilon))-0.5+epsilon)
	}},
	"CVI": {Bands: []string{band.NIR, band.Red, band.Green}, Eval: func(v ...float64) float64 {
		nir, red, green := v[0], v[1], v[2]
		return (nir * red) / (green*green + epsilon)
	}},
	"ARI": {Bands: []string{band.Green, band.RedEdge}, Eval: func(v ...float64) float64 {
		green, redEdge := v[0], v[1]
		return 1/(green+epsilon) - 1/(redEdge+epsilon)
	}},
	"ARI2": {Bands: []string{band.NIR, band.Green, band.RedEdge}, Eval: func(v ...float64) float64 {
		nir, green, redEdge := v[0], v[1], v[2]
		return nir/(green+epsilon) - nir/(redEdge+epsilon)
	}},
	"DVI": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		return v[0] - v[1]
	}},
	"WDVI": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		nir, red := v[0], v[1]
		const a = 0.5
		return nir - a*red
	}},
	"SR": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		nir, red := v[0], v[1]
		return nir / (red + epsilon)
	}},
	"MSR": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		nir, red := v[0], v[1]
		ratio := nir / (red + epsilon)
		return (ratio - 1) / math.Sqrt(ratio+1)
	}},
	"PVI": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		nir, red := v[0], v[1]
		const a, b = 0.5, 0.3
		return (nir - a*red - b) / (math.Sqrt(1+a*a) + epsilon)
	}},
	"GEMI": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		nir, red := v[0], v[1]
		eta := (2*(nir*nir-red*red) + 1.5*nir + 0.5*red) / (nir + red + 0.5 + epsilon)
		return eta*(1-0.25*eta) - (red-0.125)/(1-red+epsilon)
	}},
	"ExR": {Bands: []string{band.Red, band.Green}, Eval: func(v ...float64) float64 {
		red, green := v[0], v[1]
		return 1.3*red - green
	}},
	"RI": {Bands: []string{band.Red, band.Green}, Eval: func(v ...float64) float64 {
		red, green := v[0], v[1]
		return (red - green) / (red + green + epsilon)
	}},
	"RRI1": {Bands: []string{band.NIR, band.RedEdge}, Eval: func(v ...float64) float64 {
		nir, redEdge := v[0], v[1]
		return nir / (redEdge + epsilon)
	}},
	"RRI2": {Bands: []string{band.RedEdge, band.Red}, Eval: func(v ...float64) float64 {
		redEdge, red := v[0], v[1]
		return redEdge / (red + epsilon)
	}},
	"RRI": {Bands: []string{band.NIR, band.RedEdge}, Eval: func(v ...float64) float64 {
		nir, redEdge := v[0], v[1]
		return nir / (redEdge + epsilon)
	}},
	"AVI": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		nir, red := v[0], v[1]
		return math.Cbrt(nir * (1 - red) * (nir - red + epsilon))
	}},
	"SIPI2": {Bands: []string{band.NIR, band.Green, band.Red}, Eval: func(v ...float64) float64 {
		nir, green, red := v[0], v[1], v[2]
		return (nir - green) / (nir - red + epsilon)
	}},
	"TCARI": {Bands: []string{band.RedEdge, band.Red, band.Green}, Eval: func(v ...float64) float64 {
		redEdge, red, green := v[0], v[1], v[2]
		return 3 * ((redEdge - red) - 0.2*(redEdge-green)*(redEdge/(red+epsilon)))
	}},
	"TCARIOSAVI": {Bands: []string{band.RedEdge, band.Red, band.Green, band.NIR}, Eval: func(v ...float64) float64 {
		redEdge, red, green, nir := v[0], v[1], v[2], v[3]
		tcari := 3*(redEdge-red) - 0.2*(redEdge-green)*(redEdge/(red+epsilon))
		osavi := 1 + 0.16*((nir-red)/(nir+red+0.16+epsilon))
		return tcari / osavi
	}},
	"CCCI": {Bands: []string{band.NIR, band.RedEdge, band.Red}, Eval: func(v ...float64) float64 {
		nir, redEdge, red := v[0], v[1], v[2]
		return ((nir - redEdge) * (nir + red)) / ((nir+redEdge)*(nir-red) + epsilon)
	}},
	"RDVI": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		nir, red := v[0], v[1]
		return (nir - red) / math.Sqrt(nir+red+epsilon)
	}},
	"NLI": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		nir, red := v[0], v[1]
		return (nir*nir - red) / (nir*nir + red + epsilon)
	}},
	"BIXS": {Bands: []string{band.Green, band.Red}, Eval: func(v ...float64) float64 {
		green, red := v[0], v[1]
		return math.Sqrt((green*green + red*red) / 2)
	}},
	"IPVI": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		nir, red := v[0], v[1]
		return nir / (nir + red + epsilon)
	}},
	"EVI2": {Bands: []string{band.NIR, band.Red}, Eval: func(v ...float64) float64 {
		nir, red := v[0], v[1]
		return 2.4 * (nir - red) / (nir + red + 1 + epsilon)
	}},
}
