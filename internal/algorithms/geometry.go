// Geometric transforms: rotation and zoom
package algorithms

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// Roll rotates the image by Degrees around its centre. Output dimensions
// equal the input; corners uncovered by the rotated frame become zero.
type Roll struct {
	Degrees float64
}

// NewRoll creates a rotation by degrees
func NewRoll(degrees float64) *Roll {
	return &Roll{Degrees: degrees}
}

func (r *Roll) Kind() Kind   { return KindRoll }
func (r *Roll) Name() string { return "Roll" }

func (r *Roll) Apply(current, _ gocv.Mat) (gocv.Mat, error) {
	if err := validateInput(current); err != nil {
		return gocv.NewMat(), err
	}

	size := image.Pt(current.Cols(), current.Rows())
	rotation := rotationMatrix(float64(size.X-1)/2, float64(size.Y-1)/2, r.Degrees)
	defer rotation.Close()

	output := gocv.NewMat()
	gocv.WarpAffineWithParams(current, &output, rotation, size, gocv.InterpolationCubic, gocv.BorderConstant, color.RGBA{})
	if output.Empty() {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("roll by %.3f degrees produced no output", r.Degrees)
	}
	return output, nil
}

// rotationMatrix is the 2x3 affine matrix rotating by degrees
// (counter-clockwise) about the sub-pixel point (cx, cy).
// GetRotationMatrix2D only accepts an integer centre.
func rotationMatrix(cx, cy, degrees float64) gocv.Mat {
	rad := degrees * math.Pi / 180
	a, b := math.Cos(rad), math.Sin(rad)

	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64FC1)
	m.SetDoubleAt(0, 0, a)
	m.SetDoubleAt(0, 1, b)
	m.SetDoubleAt(0, 2, (1-a)*cx-b*cy)
	m.SetDoubleAt(1, 0, -b)
	m.SetDoubleAt(1, 1, a)
	m.SetDoubleAt(1, 2, b*cx+(1-a)*cy)
	return m
}

// Zoom crops a symmetric border and resizes the remainder back to the
// original dimensions. Factor 1.0 is the identity.
type Zoom struct {
	Factor float64
}

// NewZoom creates a new Zoom transform
func NewZoom(factor float64) *Zoom {
	return &Zoom{Factor: factor}
}

func (z *Zoom) Kind() Kind   { return KindZoom }
func (z *Zoom) Name() string { return "Zoom" }

// ShaveSize is the number of rows or columns removed from each edge of a
// dimension: round(0.5*dim*(factor-1)).
func ShaveSize(dim int, factor float64) int {
	return int(0.5 + 0.5*float64(dim)*(factor-1))
}

func (z *Zoom) Apply(current, _ gocv.Mat) (gocv.Mat, error) {
	if err := validateInput(current); err != nil {
		return gocv.NewMat(), err
	}

	rows, cols := current.Rows(), current.Cols()
	shaveRows := ShaveSize(rows, z.Factor)
	shaveCols := ShaveSize(cols, z.Factor)

	if shaveRows == 0 && shaveCols == 0 {
		return current.Clone(), nil
	}
	if 2*shaveRows >= rows || 2*shaveCols >= cols || shaveRows < 0 || shaveCols < 0 {
		return gocv.NewMat(), fmt.Errorf("zoom factor %.3f leaves no image of %dx%d", z.Factor, cols, rows)
	}

	cropped := current.Region(image.Rect(shaveCols, shaveRows, cols-shaveCols, rows-shaveRows))
	defer cropped.Close()

	output := gocv.NewMat()
	gocv.Resize(cropped, &output, image.Pt(cols, rows), 0, 0, gocv.InterpolationLinear)
	if output.Empty() {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("zoom resize produced no output")
	}
	return output, nil
}
