package band

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phenotrace/internal/raster"
)

// quadrantFrame builds a frame whose four quadrants hold the given
// constants in row-major order.
func quadrantFrame(w, h int, vals [4]float64) *raster.Map {
	f := raster.NewMap(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			q := 0
			if x >= w/2 {
				q++
			}
			if y >= h/2 {
				q += 2
			}
			f.Pix[y*w+x] = vals[q]
		}
	}
	return f
}

func TestDecomposeQuadrants(t *testing.T) {
	frame := quadrantFrame(64, 64, [4]float64{10, 20, 30, 40})
	stack, comp := Decompose(frame)

	require.Len(t, stack, 4)
	expected := map[string]float64{
		Green:   10,
		Red:     20,
		RedEdge: 30,
		NIR:     40,
	}
	for name, want := range expected {
		m, ok := stack[name]
		require.True(t, ok, "band %s missing", name)
		assert.Equal(t, 32, m.W)
		assert.Equal(t, 32, m.H)
		for _, v := range m.Pix {
			require.Equal(t, want, v)
		}
	}

	require.NotNil(t, comp)
	assert.Equal(t, 32, comp.W)
	assert.Equal(t, 32, comp.H)
}

func TestDecomposeShapes(t *testing.T) {
	cases := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"even", 64, 64, 32, 32},
		{"rectangular", 100, 60, 50, 30},
		{"odd", 65, 63, 32, 31},
		{"tiny", 2, 2, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stack, _ := Decompose(raster.NewMapFilled(tc.w, tc.h, 1))
			require.Len(t, stack, 4)
			for _, name := range TileOrder {
				m := stack[name]
				require.NotNil(t, m)
				assert.Equal(t, tc.wantW, m.W)
				assert.Equal(t, tc.wantH, m.H)
			}
		})
	}
}

func TestCompositeChannelOrder(t *testing.T) {
	frame := quadrantFrame(4, 4, [4]float64{0, 100, 200, 50})
	_, comp := Decompose(frame)

	// Global stretch maps the band constants onto the 0..255 range while
	// preserving their order: green < nir < red < red_edge.
	g := comp.GreenAt(0, 0)
	r := comp.RedAt(0, 0)
	re := comp.RedEdgeAt(0, 0)
	assert.Less(t, g, r)
	assert.Less(t, r, re)
}

func TestCompositeGrayWeights(t *testing.T) {
	comp := &Composite{W: 1, H: 1, Pix: []uint8{100, 50, 200}}
	gray := comp.Gray()
	want := 0.299*200 + 0.587*50 + 0.114*100
	assert.InDelta(t, want, gray.Pix[0], 1e-9)
}

func TestCompositeConstantInput(t *testing.T) {
	// A degenerate range must not divide by zero; all channels collapse
	// to zero.
	_, comp := Decompose(raster.NewMapFilled(8, 8, 7))
	for _, v := range comp.Pix {
		assert.Equal(t, uint8(0), v)
	}
}

func TestParseFrameName(t *testing.T) {
	cases := []struct {
		path string
		want FrameMeta
		ok   bool
	}{
		{"Arabidopsis_2026-03-14_plant7.tiff", FrameMeta{"Arabidopsis", "2026-03-14", "plant7"}, true},
		{"/data/in/Basil_2025-12-01_plant12.png", FrameMeta{"Basil", "2025-12-01", "plant12"}, true},
		{"basil-sweet_2025-12-01_plant1.jpg", FrameMeta{"basil-sweet", "2025-12-01", "plant1"}, true},
		{"frame001.tiff", FrameMeta{}, false},
		{"Basil_2025-12-01.png", FrameMeta{}, false},
	}
	for _, tc := range cases {
		got, ok := ParseFrameName(tc.path)
		assert.Equal(t, tc.ok, ok, tc.path)
		if tc.ok {
			assert.Equal(t, tc.want, got, tc.path)
		}
	}
}
