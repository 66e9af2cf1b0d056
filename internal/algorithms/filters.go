// Convolution filters: Gaussian blur and unsharp mask
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// sharpenKernelSize is the inner blur used by Sharpen regardless of the
// configured blur size.
const sharpenKernelSize = 3

// gaussianSigma derives the standard deviation from the kernel size.
func gaussianSigma(size int) float64 {
	return 0.25*float64(size) + 0.75
}

func gaussianBlur(input gocv.Mat, size int) (gocv.Mat, error) {
	sigma := gaussianSigma(size)
	output := gocv.NewMat()
	// Zero padding outside the frame.
	gocv.GaussianBlur(input, &output, image.Pt(size, size), sigma, sigma, gocv.BorderConstant)
	if output.Empty() {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("gaussian blur %dx%d produced no output", size, size)
	}
	return output, nil
}

// Blur convolves the image with a Size x Size Gaussian kernel.
type Blur struct {
	Size int
}

// NewBlur creates a Gaussian blur with a size x size kernel
func NewBlur(size int) *Blur {
	return &Blur{Size: size}
}

func (b *Blur) Kind() Kind   { return KindBlur }
func (b *Blur) Name() string { return "Blur" }

func (b *Blur) Apply(current, _ gocv.Mat) (gocv.Mat, error) {
	if err := validateInput(current); err != nil {
		return gocv.NewMat(), err
	}
	if b.Size < 1 || b.Size%2 != 1 {
		return gocv.NewMat(), fmt.Errorf("blur kernel size must be a positive odd integer, got %d", b.Size)
	}
	return gaussianBlur(current, b.Size)
}

// Sharpen applies an unsharp mask:
// output = input + Strength*(input - blur3x3(input)).
type Sharpen struct {
	Strength float64
}

// NewSharpen creates an unsharp mask of the given strength
func NewSharpen(strength float64) *Sharpen {
	return &Sharpen{Strength: strength}
}

func (s *Sharpen) Kind() Kind   { return KindSharpen }
func (s *Sharpen) Name() string { return "Sharpen" }

func (s *Sharpen) Apply(current, _ gocv.Mat) (gocv.Mat, error) {
	if err := validateInput(current); err != nil {
		return gocv.NewMat(), err
	}

	blurred, err := gaussianBlur(current, sharpenKernelSize)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer blurred.Close()

	// (1+s)*input - s*blurred
	output := gocv.NewMat()
	gocv.AddWeighted(current, 1+s.Strength, blurred, -s.Strength, 0, &output)
	if output.Empty() {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("sharpen produced no output")
	}
	return output, nil
}
