// Command phenotype runs the image-analysis pipeline on a single raw
// frame: band decomposition, vegetation indices, texture descriptors and
// (with an externally supplied mask) feature aggregation. Band images,
// visualizations and a features JSON are written to the output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"phenotrace/internal/band"
	"phenotrace/internal/pipeline"
	"phenotrace/internal/raster"
)

func main() {
	framePath := flag.String("f", "", "Path to raw frame (tiff/png/jpeg)")
	maskPath := flag.String("m", "", "Optional plant mask PNG (white = foreground)")
	configPath := flag.String("c", "", "Optional YAML config")
	outDir := flag.String("o", "out", "Output directory")
	plantID := flag.String("plant", "", "Plant identity (default: parsed from filename)")
	species := flag.String("species", "", "Species name (default: parsed from filename)")
	date := flag.String("date", "", "Capture date (default: parsed from filename)")
	flag.Parse()

	if *framePath == "" {
		fmt.Println("Usage: phenotype -f <frame> [-m <mask.png>] [-c <config.yaml>] [-o <dir>]")
		os.Exit(1)
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := pipeline.DefaultConfig()
	if *configPath != "" {
		cfg, err = pipeline.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	frame, err := band.LoadFrame(*framePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load frame: %v\n", err)
		os.Exit(1)
	}

	id := pipeline.Identity{Species: *species, Date: *date, PlantID: *plantID}
	if meta, ok := band.ParseFrameName(*framePath); ok {
		if id.Species == "" {
			id.Species = meta.Species
		}
		if id.Date == "" {
			id.Date = meta.Date
		}
		if id.PlantID == "" {
			id.PlantID = meta.PlantID
		}
	}

	runner := pipeline.NewRunner(cfg, pipeline.Collaborators{}, log)

	var res *pipeline.Result
	if *maskPath != "" {
		mask, err := loadMask(*maskPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load mask: %v\n", err)
			os.Exit(1)
		}
		res = runner.RunWithMask(context.Background(), frame, mask, id)
	} else {
		res = runner.Run(context.Background(), frame, id)
	}

	if err := writeOutputs(res, cfg, *outDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write outputs: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Run %s: %d index maps (%d skipped), %d vegetation features, %d texture features\n",
		res.RunID, len(res.IndexMaps), len(res.SkippedIndices),
		len(res.VegFeatures), len(res.TextureFeatures))
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	fmt.Printf("Outputs written to %s\n", *outDir)
}

func loadMask(path string) (*raster.Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return raster.MaskFromGray(gray), nil
}

func writeOutputs(res *pipeline.Result, cfg pipeline.Config, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := writePNG(filepath.Join(dir, "composite.png"), res.Composite.RGB()); err != nil {
		return err
	}
	for name, m := range res.Stack {
		if err := writePNG(filepath.Join(dir, "band_"+name+".png"), m.ToGray8()); err != nil {
			return err
		}
	}
	if res.Mask != nil {
		if err := writePNG(filepath.Join(dir, "mask.png"), res.Mask.ToGray()); err != nil {
			return err
		}
	}
	for name, img := range res.Visualizations {
		if err := writePNG(filepath.Join(dir, "index_"+name+".png"), img); err != nil {
			return err
		}
	}
	for bandName, d := range res.TextureMaps {
		if err := writePNG(filepath.Join(dir, "texture_"+bandName+"_lbp.png"), d.LBP); err != nil {
			return err
		}
		if err := writePNG(filepath.Join(dir, "texture_"+bandName+"_hog.png"), d.HOG); err != nil {
			return err
		}
		if d.EHD != nil && d.EHD.Map != nil {
			if err := writePNG(filepath.Join(dir, "texture_"+bandName+"_ehd.png"), d.EHD.Map); err != nil {
				return err
			}
		}
	}
	if res.Traits != nil {
		for name, img := range res.Traits.Images {
			if err := writePNG(filepath.Join(dir, "morphology_"+name+".png"), img); err != nil {
				return err
			}
		}
	}

	data, err := res.ExportJSON(cfg.NonFinitePlaceholder)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "features.json"), data, 0o644)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
