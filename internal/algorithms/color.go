// Colour-space transforms working on the hue/saturation/value representation
package algorithms

import (
	"fmt"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// Channel indices of a split HSV Mat. For 32-bit float input OpenCV
// produces H in degrees [0,360) and S, V in [0,1].
const (
	hueChannel        = 0
	saturationChannel = 1
	valueChannel      = 2
)

// toHSV converts a BGR float image and splits it into H, S, V planes.
// The caller closes every returned plane.
func toHSV(img gocv.Mat) ([]gocv.Mat, error) {
	hsv := gocv.NewMat()
	defer hsv.Close()

	if err := gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV); err != nil {
		return nil, fmt.Errorf("convert to HSV: %w", err)
	}
	planes := gocv.Split(hsv)
	if len(planes) != 3 {
		closeAll(planes)
		return nil, fmt.Errorf("expected 3 HSV planes, got %d", len(planes))
	}
	return planes, nil
}

// fromHSV merges H, S, V planes and converts back to BGR.
func fromHSV(planes []gocv.Mat) (gocv.Mat, error) {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.Merge(planes, &hsv)

	output := gocv.NewMat()
	if err := gocv.CvtColor(hsv, &output, gocv.ColorHSVToBGR); err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("convert from HSV: %w", err)
	}
	return output, nil
}

func closeAll(mats []gocv.Mat) {
	for i := range mats {
		mats[i].Close()
	}
}

// Invert maps brightness v to 1-v. Greyscale images are inverted directly;
// colour images have only their value channel inverted.
type Invert struct{}

// NewInvert creates a new Invert transform
func NewInvert() *Invert {
	return &Invert{}
}

func (i *Invert) Kind() Kind   { return KindInvert }
func (i *Invert) Name() string { return "Invert" }

func (i *Invert) Apply(current, _ gocv.Mat) (gocv.Mat, error) {
	if err := validateInput(current); err != nil {
		return gocv.NewMat(), err
	}

	if current.Channels() == 1 {
		output := current.Clone()
		invertInPlace(&output)
		return output, nil
	}

	planes, err := toHSV(current)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer closeAll(planes)

	invertInPlace(&planes[valueChannel])
	return fromHSV(planes)
}

func invertInPlace(m *gocv.Mat) {
	m.MultiplyFloat(-1)
	m.AddFloat(1)
}

// ColorCrawl displaces every pixel by a polar offset derived from its own
// HSV value: angle = 2*pi*hue, distance = DS*s + DV*v + DSV*s*v + D.
// Greyscale images pass through unchanged.
//
// Samples falling outside the frame are clamped to the nearest edge pixel
// (BorderReplicate) and interpolated bilinearly.
type ColorCrawl struct {
	DS, DV, DSV, D float64
}

// NewColorCrawl creates a crawl with the given distance coefficients
func NewColorCrawl(ds, dv, dsv, d float64) *ColorCrawl {
	return &ColorCrawl{DS: ds, DV: dv, DSV: dsv, D: d}
}

func (c *ColorCrawl) Kind() Kind   { return KindColorCrawl }
func (c *ColorCrawl) Name() string { return "Color Crawl" }

func (c *ColorCrawl) Apply(current, _ gocv.Mat) (gocv.Mat, error) {
	if err := validateInput(current); err != nil {
		return gocv.NewMat(), err
	}
	if current.Channels() == 1 {
		return current.Clone(), nil
	}

	planes, err := toHSV(current)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer closeAll(planes)

	rows, cols := current.Rows(), current.Cols()
	mapCol := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32FC1)
	defer mapCol.Close()
	mapRow := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32FC1)
	defer mapRow.Close()

	if err := c.fillMaps(planes, &mapCol, &mapRow, rows, cols); err != nil {
		return gocv.NewMat(), err
	}

	output := gocv.NewMat()
	gocv.Remap(current, &output, &mapCol, &mapRow, gocv.InterpolationLinear, gocv.BorderReplicate, color.RGBA{})
	if output.Empty() {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("color crawl remap produced no output")
	}
	return output, nil
}

// fillMaps writes the gather coordinates: each pixel's own column/row index
// plus its offset.
func (c *ColorCrawl) fillMaps(planes []gocv.Mat, mapCol, mapRow *gocv.Mat, rows, cols int) error {
	h, err := planes[hueChannel].DataPtrFloat32()
	if err != nil {
		return fmt.Errorf("hue plane: %w", err)
	}
	s, err := planes[saturationChannel].DataPtrFloat32()
	if err != nil {
		return fmt.Errorf("saturation plane: %w", err)
	}
	v, err := planes[valueChannel].DataPtrFloat32()
	if err != nil {
		return fmt.Errorf("value plane: %w", err)
	}
	mx, err := mapCol.DataPtrFloat32()
	if err != nil {
		return fmt.Errorf("column map: %w", err)
	}
	my, err := mapRow.DataPtrFloat32()
	if err != nil {
		return fmt.Errorf("row map: %w", err)
	}

	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			i := r*cols + col
			dCol, dRow := c.Offset(float64(h[i])/360, float64(s[i]), float64(v[i]))
			mx[i] = float32(float64(col) + dCol)
			my[i] = float32(float64(r) + dRow)
		}
	}
	return nil
}

// Offset returns the (column, row) displacement for a pixel with hue in
// [0,1] (a full turn), saturation and value.
func (c *ColorCrawl) Offset(hue, sat, val float64) (float64, float64) {
	angle := 2 * math.Pi * hue
	distance := c.DS*sat + c.DV*val + c.DSV*sat*val + c.D
	return distance * math.Cos(angle), distance * math.Sin(angle)
}

// HistogramEqualize equalises brightness over 256 bins. Colour images are
// equalised on the value channel only, rescaled by 1/256 instead of 1/255
// so the brightest bin does not spill over 1.0 on the way back.
type HistogramEqualize struct{}

const (
	histogramScale = 255
	greyDivisor    = 255
	valueDivisor   = 256
)

// NewHistogramEqualize creates a new HistogramEqualize transform
func NewHistogramEqualize() *HistogramEqualize {
	return &HistogramEqualize{}
}

func (e *HistogramEqualize) Kind() Kind   { return KindHistogramEqualize }
func (e *HistogramEqualize) Name() string { return "Histogram Equalize" }

func (e *HistogramEqualize) Apply(current, _ gocv.Mat) (gocv.Mat, error) {
	if err := validateInput(current); err != nil {
		return gocv.NewMat(), err
	}

	if current.Channels() == 1 {
		return equalizePlane(current, greyDivisor)
	}

	planes, err := toHSV(current)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer closeAll(planes)

	equalized, err := equalizePlane(planes[valueChannel], valueDivisor)
	if err != nil {
		return gocv.NewMat(), err
	}
	planes[valueChannel].Close()
	planes[valueChannel] = equalized

	return fromHSV(planes)
}

// equalizePlane scales a single float plane into [0,255], equalises its
// 256-bin histogram and scales the result back by 1/divisor.
func equalizePlane(plane gocv.Mat, divisor float32) (gocv.Mat, error) {
	bytes := gocv.NewMat()
	defer bytes.Close()
	plane.ConvertToWithParams(&bytes, gocv.MatTypeCV8UC1, histogramScale, 0)

	equalized := gocv.NewMat()
	defer equalized.Close()
	gocv.EqualizeHist(bytes, &equalized)
	if equalized.Empty() {
		return gocv.NewMat(), fmt.Errorf("histogram equalization produced no output")
	}

	output := gocv.NewMat()
	equalized.ConvertToWithParams(&output, gocv.MatTypeCV32FC1, 1/divisor, 0)
	return output, nil
}
