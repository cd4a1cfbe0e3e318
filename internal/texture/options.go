// Package texture computes per-band texture descriptor maps: local binary
// patterns, gradient-histogram visualizations, multi-scale lacunarity and
// edge-orientation histograms.
package texture

// Options holds the texture engine's tuning constants. The EHD threshold,
// dilation and lacunarity window defaults are empirically chosen values
// carried over from the capture pipeline, not derived quantities.
type Options struct {
	// LacunarityWindow is the base sliding-window size w; the three-scale
	// pass also evaluates w/2 and 2w.
	LacunarityWindow int `yaml:"lacunarity_window"`

	// EHDKernelSize is the edge kernel side length (odd, >= 3).
	EHDKernelSize int `yaml:"ehd_kernel_size"`
	// EHDAngleStep is the kernel rotation step in degrees; kernels span
	// 0 through 360-step.
	EHDAngleStep int `yaml:"ehd_angle_step"`
	// EHDDilation spaces kernel taps during convolution.
	EHDDilation int `yaml:"ehd_dilation"`
	// EHDThreshold is the minimum edge response; weaker pixels fall into
	// the extra no-edge bin.
	EHDThreshold float64 `yaml:"ehd_threshold"`
	// EHDPoolSize is the average-pooling window for per-bin density maps.
	EHDPoolSize int `yaml:"ehd_pool_size"`

	// LBPPoints and LBPRadius parameterize the local pattern transform.
	LBPPoints int     `yaml:"lbp_points"`
	LBPRadius float64 `yaml:"lbp_radius"`

	// HOGOrientations, HOGCellSize and HOGCellsPerBlock parameterize the
	// gradient-histogram descriptor.
	HOGOrientations  int `yaml:"hog_orientations"`
	HOGCellSize      int `yaml:"hog_cell_size"`
	HOGCellsPerBlock int `yaml:"hog_cells_per_block"`
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		LacunarityWindow: 15,
		EHDKernelSize:    3,
		EHDAngleStep:     45,
		EHDDilation:      7,
		EHDThreshold:     0.9,
		EHDPoolSize:      5,
		LBPPoints:        8,
		LBPRadius:        1,
		HOGOrientations:  9,
		HOGCellSize:      8,
		HOGCellsPerBlock: 2,
	}
}
