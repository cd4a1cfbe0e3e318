package pipeline

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phenotrace/internal/band"
	"phenotrace/internal/raster"
	"phenotrace/internal/segment"
	"phenotrace/internal/stats"
	"phenotrace/pkg/geometry"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []int{200, 100, 50, 30, 10}, cfg.PruneSizes)
	assert.InDelta(t, 0.1099609375, cfg.PixelScale, 1e-12)
	assert.Equal(t, segment.PolicyMiddleFront, cfg.Policies.Default)
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero pixel scale", func(c *Config) { c.PixelScale = 0 }},
		{"negative prune size", func(c *Config) { c.PruneSizes = []int{100, -1} }},
		{"even ehd kernel", func(c *Config) { c.Texture.EHDKernelSize = 4 }},
		{"bad angle step", func(c *Config) { c.Texture.EHDAngleStep = 50 }},
		{"tiny lacunarity window", func(c *Config) { c.Texture.LacunarityWindow = 1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
pixel_scale: 0.25
tip_limit: 30
segment_prompt: "green plant"
policies:
  default: nearest_center
  per_plant:
    plant4: largest_confident
texture:
  lacunarity_window: 21
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.PixelScale)
	assert.Equal(t, 30, cfg.TipLimit)
	assert.Equal(t, "green plant", cfg.SegmentPrompt)
	assert.Equal(t, segment.PolicyNearestCenter, cfg.Policies.Default)
	assert.Equal(t, segment.PolicyLargestConfident, cfg.Policies.For("plant4"))
	assert.Equal(t, 21, cfg.Texture.LacunarityWindow)
	// Untouched keys keep their defaults.
	assert.Equal(t, []int{200, 100, 50, 30, 10}, cfg.PruneSizes)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pixel_scale: -1\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestExportJSONSubstitutesNonFinite(t *testing.T) {
	runner := NewRunner(DefaultConfig(), Collaborators{}, nil)
	frame := raster.NewMapFilled(8, 8, 1)
	res := runner.Run(context.Background(), frame, Identity{PlantID: "plant1"})
	res.VegFeatures = stats.Record{
		"ndvi_mean": math.NaN(),
		"ndvi_max":  math.Inf(1),
		"ndvi_min":  0.25,
	}

	data, err := res.ExportJSON(0)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	veg := payload["vegetation_features"].(map[string]any)
	assert.Equal(t, 0.0, veg["ndvi_mean"])
	assert.Equal(t, 0.0, veg["ndvi_max"])
	assert.Equal(t, 0.25, veg["ndvi_min"])
	assert.Equal(t, "plant1", payload["plant_id"])
	assert.NotEmpty(t, payload["run_id"])
}

func TestOverlayDimensionsAndTint(t *testing.T) {
	g := raster.NewMapFilled(4, 4, 10)
	re := raster.NewMapFilled(4, 4, 20)
	r := raster.NewMapFilled(4, 4, 30)
	comp := band.NewComposite(g, re, r)

	mask := raster.NewMask(4, 4)
	mask.Set(0, 0, true)

	img := Overlay(comp, mask)
	require.Equal(t, 4, img.Bounds().Dx())
	require.Equal(t, 4, img.Bounds().Dy())

	fg := img.RGBAAt(0, 0)
	bg := img.RGBAAt(1, 1)
	assert.Greater(t, fg.G, bg.G, "foreground tinted green")
}

type fakeSegmenter struct {
	instances segment.Instances
	err       error
}

func (f fakeSegmenter) Segment(_ context.Context, _ *band.Composite, _ string) (segment.Instances, error) {
	return f.instances, f.err
}

type fakeDetector struct {
	dets []segment.Detection
}

func (f fakeDetector) Detect(_ context.Context, _ *band.Composite) ([]segment.Detection, error) {
	return f.dets, nil
}

// gradientFrame gives decomposition a frame whose bands are all distinct.
func gradientFrame(w, h int) *raster.Map {
	f := raster.NewMap(w, h)
	for i := range f.Pix {
		f.Pix[i] = float64(i % 97)
	}
	return f
}

func TestRunWithoutSegmenterDegrades(t *testing.T) {
	runner := NewRunner(DefaultConfig(), Collaborators{}, nil)
	res := runner.Run(context.Background(), gradientFrame(32, 32), Identity{PlantID: "plant1"})

	require.NotNil(t, res)
	assert.NotEmpty(t, res.Warnings)
	assert.Equal(t, 0, res.Mask.ForegroundCount())
	assert.Empty(t, res.VegFeatures, "empty mask yields empty feature sets")
	assert.Len(t, res.IndexMaps, 48, "maps are still produced, all NaN")
}

func TestRunWithSegmenter(t *testing.T) {
	w, h := 16, 16 // composite dims for a 32x32 frame
	box := geometry.RectInt{X: 4, Y: 4, Width: 8, Height: 8}
	mask := raster.NewMask(w, h)
	mask.FillRect(box, true)

	collab := Collaborators{
		Segmenter: fakeSegmenter{instances: segment.Instances{
			Masks: []*raster.Mask{mask},
			Boxes: []geometry.RectInt{box},
		}},
		Detector: fakeDetector{},
	}
	runner := NewRunner(DefaultConfig(), collab, nil)
	res := runner.Run(context.Background(), gradientFrame(32, 32), Identity{PlantID: "plant1"})

	assert.Equal(t, 64, res.Mask.ForegroundCount())
	assert.NotEmpty(t, res.VegFeatures)
	assert.Contains(t, res.VegFeatures, "NDVI_mean")
	assert.Contains(t, res.Visualizations, "NDVI")
	assert.Contains(t, res.Visualizations, "mask_overlay")
	assert.NotEmpty(t, res.TextureFeatures)
	assert.Contains(t, res.Warnings, "no morphology collaborator, traits skipped")
}

func TestRunWithMaskRefines(t *testing.T) {
	w, h := 16, 16
	mask := raster.NewMask(w, h)
	mask.FillRect(geometry.RectInt{X: 1, Y: 1, Width: 6, Height: 6}, true)  // 36 px
	mask.FillRect(geometry.RectInt{X: 10, Y: 10, Width: 2, Height: 2}, true) // speck

	runner := NewRunner(DefaultConfig(), Collaborators{}, nil)
	res := runner.RunWithMask(context.Background(), gradientFrame(32, 32), mask, Identity{PlantID: "plant2"})

	assert.Equal(t, 36, res.Mask.ForegroundCount(), "speck removed by the component filter")
	assert.NotEmpty(t, res.VegFeatures)
}
