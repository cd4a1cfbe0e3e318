// Package pipeline wires the per-plant processing stages together: band
// decomposition, instance selection and refinement, index and texture
// extraction, morphology analysis and feature export.
package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"phenotrace/internal/morphology"
	"phenotrace/internal/segment"
	"phenotrace/internal/texture"
	"phenotrace/pkg/geometry"
)

// ROI is the image sub-rectangle presumed to contain the plant, given as
// corner coordinates.
type ROI struct {
	X1 int `yaml:"x1"`
	Y1 int `yaml:"y1"`
	X2 int `yaml:"x2"`
	Y2 int `yaml:"y2"`
}

// Rect converts the ROI to a clip rectangle.
func (r *ROI) Rect() geometry.RectInt {
	return geometry.RectFromCorners(r.X1, r.Y1, r.X2, r.Y2)
}

// Config carries every tunable of a pipeline run.
type Config struct {
	// PixelScale converts skeleton pixels to centimeters.
	PixelScale float64 `yaml:"pixel_scale"`

	// PruneSizes is the descending skeleton pruning sequence.
	PruneSizes []int `yaml:"prune_sizes"`

	// TipLimit caps accepted skeleton tips; 0 keeps the collaborator
	// default.
	TipLimit int `yaml:"tip_limit"`

	TangentSize   int `yaml:"tangent_size"`
	InsertionSize int `yaml:"insertion_size"`

	// SegmentPrompt is the text prompt handed to the segmentation
	// collaborator.
	SegmentPrompt string `yaml:"segment_prompt"`

	// ExclusionKeywords match detection labels whose boxes are erased
	// from the selected mask.
	ExclusionKeywords []string `yaml:"exclusion_keywords"`

	// Policies maps plant identities to mask selection policies.
	Policies segment.PolicyTable `yaml:"policies"`

	Texture texture.Options `yaml:"texture"`

	// ROI, when set, clips the selected mask before refinement.
	ROI *ROI `yaml:"roi"`

	// NonFinitePlaceholder substitutes NaN and infinite feature values at
	// the serialization boundary.
	NonFinitePlaceholder float64 `yaml:"non_finite_placeholder"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PixelScale:        morphology.DefaultPixelScale,
		PruneSizes:        []int{200, 100, 50, 30, 10},
		TipLimit:          0,
		TangentSize:       15,
		InsertionSize:     20,
		SegmentPrompt:     "plant",
		ExclusionKeywords: segment.DefaultExclusionKeywords,
		Policies:          segment.PolicyTable{Default: segment.PolicyMiddleFront},
		Texture:           texture.DefaultOptions(),
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.PixelScale <= 0 {
		return fmt.Errorf("pixel_scale must be positive, got %g", c.PixelScale)
	}
	for _, s := range c.PruneSizes {
		if s <= 0 {
			return fmt.Errorf("prune size must be positive, got %d", s)
		}
	}
	if c.TipLimit < 0 {
		return fmt.Errorf("tip_limit must be non-negative, got %d", c.TipLimit)
	}
	t := c.Texture
	if t.LacunarityWindow < 3 {
		return fmt.Errorf("lacunarity_window must be at least 3, got %d", t.LacunarityWindow)
	}
	if t.EHDKernelSize < 3 || t.EHDKernelSize%2 == 0 {
		return fmt.Errorf("ehd_kernel_size must be odd and at least 3, got %d", t.EHDKernelSize)
	}
	if t.EHDAngleStep <= 0 || 360%t.EHDAngleStep != 0 {
		return fmt.Errorf("ehd_angle_step must divide 360, got %d", t.EHDAngleStep)
	}
	if t.EHDDilation < 1 {
		return fmt.Errorf("ehd_dilation must be at least 1, got %d", t.EHDDilation)
	}
	if t.LBPPoints < 4 {
		return fmt.Errorf("lbp_points must be at least 4, got %d", t.LBPPoints)
	}
	if t.HOGOrientations < 1 || t.HOGCellSize < 1 || t.HOGCellsPerBlock < 1 {
		return fmt.Errorf("hog parameters must be positive")
	}
	return nil
}

// MorphologyOptions projects the config onto the orchestrator's options.
func (c Config) MorphologyOptions() morphology.Options {
	opts := morphology.DefaultOptions()
	opts.PixelScale = c.PixelScale
	opts.PruneSizes = c.PruneSizes
	opts.TipLimit = c.TipLimit
	opts.TangentSize = c.TangentSize
	opts.InsertionSize = c.InsertionSize
	return opts
}
