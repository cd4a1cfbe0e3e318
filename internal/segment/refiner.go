package segment

import (
	"fmt"
	"strings"

	"gocv.io/x/gocv"

	"phenotrace/internal/raster"
	"phenotrace/pkg/geometry"
)

// DefaultExclusionKeywords match detector class labels that name a
// container rather than the plant.
var DefaultExclusionKeywords = []string{"pot", "vase", "container", "planter"}

// ExclusionBoxes returns the boxes of detections whose class label
// contains one of the keywords, case-insensitively.
func ExclusionBoxes(dets []Detection, keywords []string) []geometry.RectInt {
	if len(keywords) == 0 {
		keywords = DefaultExclusionKeywords
	}
	var out []geometry.RectInt
	for _, d := range dets {
		label := strings.ToLower(d.Label)
		for _, kw := range keywords {
			if strings.Contains(label, kw) {
				out = append(out, d.Box)
				break
			}
		}
	}
	return out
}

// Refine crops the mask to the optional region of interest, zeroes every
// exclusion rectangle, then keeps only the largest 8-connected component.
// The order matters: exclusions are applied first so a zeroed container
// blob can never win the component filter.
func Refine(mask *raster.Mask, roi *geometry.RectInt, exclusions []geometry.RectInt) (*raster.Mask, error) {
	out := mask.Clone()

	if roi != nil {
		out.KeepRect(*roi)
	}
	for _, ex := range exclusions {
		out.FillRect(ex, false)
	}

	return LargestComponent(out)
}

// LargestComponent keeps only the 8-connected foreground component with
// the largest pixel area. An all-background mask is returned unchanged.
func LargestComponent(mask *raster.Mask) (*raster.Mask, error) {
	src, err := gocv.NewMatFromBytes(mask.H, mask.W, gocv.MatTypeCV8U, mask.Pix)
	if err != nil {
		return nil, fmt.Errorf("building mask mat: %w", err)
	}
	defer src.Close()

	labels := gocv.NewMat()
	defer labels.Close()
	mstats := gocv.NewMat()
	defer mstats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	// Label 0 is the background.
	n := gocv.ConnectedComponentsWithStats(src, &labels, &mstats, &centroids)
	if n <= 1 {
		return mask.Clone(), nil
	}

	largest := 1
	largestArea := mstats.GetIntAt(1, int(gocv.CCStatArea))
	for lbl := 2; lbl < n; lbl++ {
		if area := mstats.GetIntAt(lbl, int(gocv.CCStatArea)); area > largestArea {
			largest, largestArea = lbl, area
		}
	}

	out := raster.NewMask(mask.W, mask.H)
	for y := 0; y < mask.H; y++ {
		for x := 0; x < mask.W; x++ {
			if labels.GetIntAt(y, x) == int32(largest) {
				out.Pix[y*mask.W+x] = raster.Foreground
			}
		}
	}
	return out, nil
}
