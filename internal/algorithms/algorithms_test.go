package algorithms

import (
	"math"
	"math/rand/v2"
	"testing"

	"gocv.io/x/gocv"
)

// newTestMat creates a float Mat and fills element i (row-major, channels
// interleaved) with fill(i).
func newTestMat(t *testing.T, rows, cols, channels int, fill func(i int) float32) gocv.Mat {
	t.Helper()

	mt := gocv.MatTypeCV32FC3
	if channels == 1 {
		mt = gocv.MatTypeCV32FC1
	}
	m := gocv.NewMatWithSize(rows, cols, mt)
	data, err := m.DataPtrFloat32()
	if err != nil {
		m.Close()
		t.Fatalf("DataPtrFloat32: %v", err)
	}
	for i := range data {
		data[i] = fill(i)
	}
	return m
}

func randomFill(seed uint64) func(int) float32 {
	rng := rand.New(rand.NewPCG(seed, seed))
	return func(int) float32 { return rng.Float32() }
}

func floats(t *testing.T, m gocv.Mat) []float32 {
	t.Helper()
	data, err := m.DataPtrFloat32()
	if err != nil {
		t.Fatalf("DataPtrFloat32: %v", err)
	}
	out := make([]float32, len(data))
	copy(out, data)
	return out
}

func assertClose(t *testing.T, got, want []float32, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		if math.Abs(float64(got[i]-want[i])) > tol {
			t.Fatalf("element %d: got %v, want %v (tol %g)", i, got[i], want[i], tol)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, info := range Kinds() {
		kind, err := ParseKind(string(info.Kind))
		if err != nil {
			t.Errorf("ParseKind(%q) failed: %v", info.Kind, err)
		}
		if kind != info.Kind {
			t.Errorf("ParseKind(%q) = %q", info.Kind, kind)
		}
	}

	if _, err := ParseKind("posterize"); err == nil {
		t.Error("Expected error for unknown kind")
	}

	if len(Kinds()) != 10 {
		t.Errorf("Expected 10 transform kinds, got %d", len(Kinds()))
	}
}

func TestInvertGreyscaleIsInvolution(t *testing.T) {
	input := newTestMat(t, 8, 12, 1, randomFill(1))
	defer input.Close()

	inv := NewInvert()
	once, err := inv.Apply(input, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer once.Close()

	want := floats(t, input)
	got := floats(t, once)
	for i := range want {
		if math.Abs(float64(got[i]-(1-want[i]))) > 1e-6 {
			t.Fatalf("element %d: got %v, want %v", i, got[i], 1-want[i])
		}
	}

	twice, err := inv.Apply(once, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer twice.Close()

	assertClose(t, floats(t, twice), want, 1e-6)
}

func TestInvertColorDoesNotModifyInput(t *testing.T) {
	input := newTestMat(t, 6, 6, 3, randomFill(2))
	defer input.Close()
	before := floats(t, input)

	output, err := NewInvert().Apply(input, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer output.Close()

	if output.Rows() != 6 || output.Cols() != 6 || output.Channels() != 3 {
		t.Errorf("unexpected output shape %dx%dx%d", output.Rows(), output.Cols(), output.Channels())
	}
	assertClose(t, floats(t, input), before, 0)
}

func TestClipBound(t *testing.T) {
	values := []float32{-0.5, 0, 0.25, 0.999, 1, 1.0001, 1.5, 7}
	input := newTestMat(t, 1, len(values), 1, func(i int) float32 { return values[i] })
	defer input.Close()

	output, err := NewClip().Apply(input, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer output.Close()

	got := floats(t, output)
	for i, v := range values {
		if got[i] > ClipLimit {
			t.Errorf("element %d: %v exceeds limit", i, got[i])
		}
		if v <= ClipLimit && got[i] != v {
			t.Errorf("element %d: in-range value %v changed to %v", i, v, got[i])
		}
		if v > ClipLimit && got[i] != ClipLimit {
			t.Errorf("element %d: %v clipped to %v, want 1.0", i, v, got[i])
		}
	}
}

func TestBlendBoundaries(t *testing.T) {
	current := newTestMat(t, 5, 7, 3, randomFill(3))
	defer current.Close()
	previous := newTestMat(t, 5, 7, 3, randomFill(4))
	defer previous.Close()

	tests := []struct {
		name        string
		coefficient float64
		want        func(c, p float32) float32
		tol         float64
	}{
		{"discard history", 1.0, func(c, _ float32) float32 { return c }, 0},
		{"discard current", 0.0, func(_, p float32) float32 { return p }, 0},
		{"quarter", 0.25, func(c, p float32) float32 { return 0.25*c + 0.75*p }, 1e-6},
	}

	cur := floats(t, current)
	prev := floats(t, previous)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := NewBlend(tt.coefficient).Apply(current, previous)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			defer output.Close()

			want := make([]float32, len(cur))
			for i := range cur {
				want[i] = tt.want(cur[i], prev[i])
			}
			assertClose(t, floats(t, output), want, tt.tol)
		})
	}
}

func TestBlendShapeMismatch(t *testing.T) {
	current := newTestMat(t, 4, 4, 3, randomFill(5))
	defer current.Close()
	previous := newTestMat(t, 4, 5, 3, randomFill(6))
	defer previous.Close()

	output, err := NewBlend(0.5).Apply(current, previous)
	defer output.Close()
	if err == nil {
		t.Error("Expected error for mismatched shapes")
	}
}

func TestShaveSize(t *testing.T) {
	tests := []struct {
		dim    int
		factor float64
		want   int
	}{
		{1080, 1.0, 0},
		{1920, 1.0, 0},
		{1080, 1.01, 5},
		{1920, 1.01, 10},
		{100, 1.5, 25},
		{100, 2.0, 50},
		{3, 1.1, 0},
	}

	for _, tt := range tests {
		if got := ShaveSize(tt.dim, tt.factor); got != tt.want {
			t.Errorf("ShaveSize(%d, %v) = %d, want %d", tt.dim, tt.factor, got, tt.want)
		}
	}
}

func TestZoomIdentity(t *testing.T) {
	input := newTestMat(t, 9, 13, 3, randomFill(7))
	defer input.Close()

	output, err := NewZoom(1.0).Apply(input, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer output.Close()

	if output.Rows() != 9 || output.Cols() != 13 {
		t.Fatalf("dimensions changed to %dx%d", output.Cols(), output.Rows())
	}
	assertClose(t, floats(t, output), floats(t, input), 0)
}

func TestZoomPreservesDimensions(t *testing.T) {
	input := newTestMat(t, 40, 60, 1, randomFill(8))
	defer input.Close()

	output, err := NewZoom(1.5).Apply(input, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer output.Close()

	if output.Rows() != 40 || output.Cols() != 60 || output.Channels() != 1 {
		t.Errorf("unexpected output shape %dx%dx%d", output.Rows(), output.Cols(), output.Channels())
	}
}

func TestRollPreservesDimensions(t *testing.T) {
	input := newTestMat(t, 30, 50, 3, randomFill(9))
	defer input.Close()

	output, err := NewRoll(17).Apply(input, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer output.Close()

	if output.Rows() != 30 || output.Cols() != 50 || output.Channels() != 3 {
		t.Errorf("unexpected output shape %dx%dx%d", output.Rows(), output.Cols(), output.Channels())
	}
}

func TestRollHalfTurnIsPointReflection(t *testing.T) {
	// Even dimensions: the centre falls between pixels.
	input := newTestMat(t, 4, 6, 1, randomFill(21))
	defer input.Close()

	output, err := NewRoll(180).Apply(input, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer output.Close()

	want := gocv.NewMat()
	defer want.Close()
	gocv.Flip(input, &want, -1)

	assertClose(t, floats(t, output), floats(t, want), 1e-4)
}

func TestRollZeroIsIdentity(t *testing.T) {
	input := newTestMat(t, 10, 10, 1, randomFill(10))
	defer input.Close()

	output, err := NewRoll(0).Apply(input, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer output.Close()

	assertClose(t, floats(t, output), floats(t, input), 1e-5)
}

func TestNoise(t *testing.T) {
	// Mutate is the fraction of pixels left alone, not the fraction changed:
	// the mask selects pixels whose draw exceeds it.
	t.Run("mutate 1 selects nothing", func(t *testing.T) {
		input := newTestMat(t, 16, 16, 3, randomFill(11))
		defer input.Close()

		rng := rand.New(rand.NewPCG(1, 2))
		output, err := NewNoise(0.5, 1.0, rng).Apply(input, input)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		defer output.Close()

		assertClose(t, floats(t, output), floats(t, input), 0)
	})

	t.Run("mutate 0 perturbs within level", func(t *testing.T) {
		input := newTestMat(t, 16, 16, 1, func(int) float32 { return 0.5 })
		defer input.Close()

		rng := rand.New(rand.NewPCG(3, 4))
		output, err := NewNoise(0.1, 0.0, rng).Apply(input, input)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		defer output.Close()

		changed := 0
		for i, v := range floats(t, output) {
			if math.Abs(float64(v)-0.5) > 0.1+1e-6 {
				t.Fatalf("element %d: %v outside [0.4, 0.6]", i, v)
			}
			if v != 0.5 {
				changed++
			}
		}
		if changed == 0 {
			t.Error("Expected some pixels to change")
		}
	})

	t.Run("same seed same output", func(t *testing.T) {
		input := newTestMat(t, 8, 8, 3, randomFill(12))
		defer input.Close()

		a, err := NewNoise(0.2, 0.3, rand.New(rand.NewPCG(9, 9))).Apply(input, input)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		defer a.Close()
		b, err := NewNoise(0.2, 0.3, rand.New(rand.NewPCG(9, 9))).Apply(input, input)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		defer b.Close()

		assertClose(t, floats(t, a), floats(t, b), 0)
	})

	t.Run("mask shared across channels", func(t *testing.T) {
		input := newTestMat(t, 20, 20, 3, func(int) float32 { return 0.5 })
		defer input.Close()

		output, err := NewNoise(0.3, 0.5, rand.New(rand.NewPCG(5, 6))).Apply(input, input)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		defer output.Close()

		data := floats(t, output)
		for p := 0; p < len(data)/3; p++ {
			touched := 0
			for c := 0; c < 3; c++ {
				if data[3*p+c] != 0.5 {
					touched++
				}
			}
			// A selected pixel may, very rarely, draw exactly 0.5 on one channel.
			if touched != 0 && touched < 2 {
				t.Fatalf("pixel %d: only %d of 3 channels changed", p, touched)
			}
		}
	})
}

func TestColorCrawlOffset(t *testing.T) {
	c := NewColorCrawl(0, 0, 0, 2)

	dCol, dRow := c.Offset(0, 0.3, 0.7)
	if math.Abs(dCol-2) > 1e-9 || math.Abs(dRow) > 1e-9 {
		t.Errorf("hue 0: got (%v, %v), want (2, 0)", dCol, dRow)
	}

	dCol, dRow = c.Offset(0.25, 0.3, 0.7)
	if math.Abs(dCol) > 1e-9 || math.Abs(dRow-2) > 1e-9 {
		t.Errorf("hue 0.25: got (%v, %v), want (0, 2)", dCol, dRow)
	}

	full := NewColorCrawl(1, 2, 3, 4)
	dCol, _ = full.Offset(0, 0.5, 0.5)
	if want := 1*0.5 + 2*0.5 + 3*0.25 + 4; math.Abs(dCol-want) > 1e-9 {
		t.Errorf("distance: got %v, want %v", dCol, want)
	}
}

func TestColorCrawlGreyscaleIsIdentity(t *testing.T) {
	input := newTestMat(t, 7, 9, 1, randomFill(13))
	defer input.Close()

	output, err := NewColorCrawl(1.1, -0.5, 1.4, -1.3).Apply(input, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer output.Close()

	assertClose(t, floats(t, output), floats(t, input), 0)
}

func TestColorCrawlZeroDistanceIsIdentity(t *testing.T) {
	input := newTestMat(t, 7, 9, 3, randomFill(14))
	defer input.Close()

	output, err := NewColorCrawl(0, 0, 0, 0).Apply(input, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer output.Close()

	assertClose(t, floats(t, output), floats(t, input), 1e-5)
}

func TestColorCrawlGathersAlongHue(t *testing.T) {
	const rows, cols = 4, 8

	tests := []struct {
		name   string
		bgr    [3]float32 // channel weights of a pure hue
		source func(col int) int
	}{
		// Hue 0 points along +column: each pixel takes its right
		// neighbour and the last column replicates the edge.
		{"red", [3]float32{0, 0, 1}, func(col int) int { return min(col+1, cols-1) }},
		// Hue 180 degrees points along -column.
		{"cyan", [3]float32{1, 1, 0}, func(col int) int { return max(col-1, 0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			brightness := func(col int) float32 { return 0.1 + 0.1*float32(col) }
			input := newTestMat(t, rows, cols, 3, func(i int) float32 {
				col := (i / 3) % cols
				return tt.bgr[i%3] * brightness(col)
			})
			defer input.Close()

			output, err := NewColorCrawl(0, 0, 0, 1).Apply(input, input)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			defer output.Close()

			got := floats(t, output)
			for r := 0; r < rows; r++ {
				for col := 0; col < cols; col++ {
					for ch := 0; ch < 3; ch++ {
						want := tt.bgr[ch] * brightness(tt.source(col))
						v := got[(r*cols+col)*3+ch]
						if math.Abs(float64(v-want)) > 1e-4 {
							t.Fatalf("pixel (%d,%d) channel %d = %v, want %v", r, col, ch, v, want)
						}
					}
				}
			}
		})
	}
}

// sampleHSV returns hue in degrees, saturation and value of a BGR sample.
func sampleHSV(b, g, r float32) (float64, float64, float64) {
	hi := math.Max(float64(b), math.Max(float64(g), float64(r)))
	lo := math.Min(float64(b), math.Min(float64(g), float64(r)))
	if hi == 0 {
		return 0, 0, 0
	}
	d := hi - lo
	if d == 0 {
		return 0, 0, hi
	}
	var h float64
	switch hi {
	case float64(r):
		h = 60 * (float64(g) - float64(b)) / d
	case float64(g):
		h = 120 + 60*(float64(b)-float64(r))/d
	default:
		h = 240 + 60*(float64(r)-float64(g))/d
	}
	if h < 0 {
		h += 360
	}
	return h, d / hi, hi
}

func TestHistogramEqualizeStretchesGreyscale(t *testing.T) {
	// Two grey levels spread to the ends of the range.
	input := newTestMat(t, 6, 6, 1, func(i int) float32 { return 0.2 + 0.2*float32(i%2) })
	defer input.Close()

	output, err := NewHistogramEqualize().Apply(input, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer output.Close()

	for i, v := range floats(t, output) {
		want := float32(i % 2)
		if math.Abs(float64(v-want)) > 1e-5 {
			t.Fatalf("element %d = %v, want %v", i, v, want)
		}
	}
}

func TestHistogramEqualizeColourKeepsHueAndSaturation(t *testing.T) {
	// One hue (20 degrees, saturation 0.75) at three brightness levels.
	weights := [3]float32{0.25, 0.5, 1}
	levels := [3]float32{0.2, 0.4, 0.8}
	input := newTestMat(t, 6, 6, 3, func(i int) float32 {
		return weights[i%3] * levels[(i/3)%3]
	})
	defer input.Close()

	output, err := NewHistogramEqualize().Apply(input, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer output.Close()

	got := floats(t, output)
	brightest := 0.0
	for p := 0; p < len(got)/3; p++ {
		h, s, v := sampleHSV(got[3*p], got[3*p+1], got[3*p+2])
		brightest = math.Max(brightest, v)
		if (p % 3) == 0 {
			// The darkest level equalises to black.
			if v > 1e-5 {
				t.Fatalf("pixel %d: value %v, want 0", p, v)
			}
			continue
		}
		if math.Abs(h-20) > 0.05 || math.Abs(s-0.75) > 1e-3 {
			t.Fatalf("pixel %d: hue %v saturation %v, want 20 and 0.75", p, h, s)
		}
	}

	// The value channel comes back scaled by 1/256.
	if math.Abs(brightest-255.0/256) > 1e-5 {
		t.Errorf("brightest value %v, want %v", brightest, 255.0/256)
	}
}

func TestHistogramEqualizeRange(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		max      float32
	}{
		{"greyscale", 1, 1.0},
		{"colour", 3, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := newTestMat(t, 16, 16, tt.channels, func(i int) float32 { return float32(i%64) / 128 })
			defer input.Close()

			output, err := NewHistogramEqualize().Apply(input, input)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			defer output.Close()

			if output.Channels() != tt.channels {
				t.Fatalf("channels changed to %d", output.Channels())
			}
			for i, v := range floats(t, output) {
				if v < -1e-5 || v > tt.max+1e-5 {
					t.Fatalf("element %d: %v outside [0, %v]", i, v, tt.max)
				}
			}
		})
	}
}

func TestBlurKeepsUniformInterior(t *testing.T) {
	input := newTestMat(t, 11, 11, 1, func(int) float32 { return 0.5 })
	defer input.Close()

	output, err := NewBlur(3).Apply(input, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer output.Close()

	if got := output.GetFloatAt(5, 5); math.Abs(float64(got)-0.5) > 1e-5 {
		t.Errorf("centre pixel %v, want 0.5", got)
	}
	if corner := output.GetFloatAt(0, 0); corner >= 0.5 {
		t.Errorf("corner %v should be darkened by zero padding", corner)
	}
}

func TestBlurRejectsEvenKernel(t *testing.T) {
	input := newTestMat(t, 5, 5, 1, randomFill(15))
	defer input.Close()

	output, err := NewBlur(4).Apply(input, input)
	defer output.Close()
	if err == nil {
		t.Error("Expected error for even kernel size")
	}
}

func TestSharpenZeroStrengthIsIdentity(t *testing.T) {
	input := newTestMat(t, 8, 8, 3, randomFill(16))
	defer input.Close()

	output, err := NewSharpen(0).Apply(input, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer output.Close()

	assertClose(t, floats(t, output), floats(t, input), 1e-6)
}

func TestRejectsEmptyInput(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	stages := []Transform{
		NewInvert(), NewColorCrawl(0, 0, 0, 1), NewNoise(0.1, 0.1, rand.New(rand.NewPCG(1, 1))),
		NewClip(), NewRoll(1), NewBlend(0.5), NewBlur(3), NewSharpen(1),
		NewHistogramEqualize(), NewZoom(1.1),
	}
	for _, stage := range stages {
		output, err := stage.Apply(empty, empty)
		if err == nil {
			t.Errorf("%s: expected error for empty input", stage.Name())
		}
		output.Close()
	}
}
