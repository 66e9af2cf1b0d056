// Transform system for the feedback pipeline
package algorithms

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Kind identifies one of the transform variants.
type Kind string

const (
	KindInvert            Kind = "invert"
	KindColorCrawl        Kind = "crawl"
	KindNoise             Kind = "noise"
	KindClip              Kind = "clip"
	KindRoll              Kind = "roll"
	KindBlend             Kind = "blend"
	KindBlur              Kind = "blur"
	KindSharpen           Kind = "sharpen"
	KindHistogramEqualize Kind = "histeq"
	KindZoom              Kind = "zoom"
)

// Transform is one pipeline stage. Apply never modifies its inputs and
// returns a newly allocated Mat owned by the caller.
//
// current is the running value of the pipeline; previous is the feedback
// image as it was committed before the tick started. Only Blend reads
// previous.
type Transform interface {
	Kind() Kind
	Name() string
	Apply(current, previous gocv.Mat) (gocv.Mat, error)
}

// KindInfo describes a transform kind for help output and logging
type KindInfo struct {
	Kind        Kind
	Name        string
	Description string
}

var kinds = []KindInfo{
	{KindInvert, "Invert", "Invert brightness (value channel for colour images)"},
	{KindColorCrawl, "Color Crawl", "Warp each pixel towards a neighbour chosen by its own hue, saturation and value"},
	{KindNoise, "Noise", "Add uniform noise to a random subset of pixels"},
	{KindClip, "Clip", "Clamp values above 1.0"},
	{KindRoll, "Roll", "Rotate around the image centre"},
	{KindBlend, "Blend", "Mix the pipeline output with the previous frame"},
	{KindBlur, "Blur", "Gaussian blur"},
	{KindSharpen, "Sharpen", "Unsharp mask with a fixed 3x3 Gaussian"},
	{KindHistogramEqualize, "Histogram Equalize", "Equalise the brightness histogram"},
	{KindZoom, "Zoom", "Crop the border and resize back to full size"},
}

// Kinds returns every known transform kind in a stable order.
func Kinds() []KindInfo {
	result := make([]KindInfo, len(kinds))
	copy(result, kinds)
	return result
}

// ParseKind maps a directive name to its kind.
func ParseKind(name string) (Kind, error) {
	for _, info := range kinds {
		if string(info.Kind) == name {
			return info.Kind, nil
		}
	}
	return "", fmt.Errorf("unknown transform: %s", name)
}

func (k Kind) String() string {
	return string(k)
}

// validateInput checks that m is a float image with 1 or 3 channels.
func validateInput(m gocv.Mat) error {
	if m.Empty() {
		return fmt.Errorf("input image is empty")
	}
	switch m.Type() {
	case gocv.MatTypeCV32FC1, gocv.MatTypeCV32FC3:
		return nil
	default:
		return fmt.Errorf("unsupported image type: %v (want 32-bit float, 1 or 3 channels)", m.Type())
	}
}

func sameShape(a, b gocv.Mat) bool {
	return a.Rows() == b.Rows() && a.Cols() == b.Cols() && a.Type() == b.Type()
}
