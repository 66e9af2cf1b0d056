package metrics

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"
)

// Mean is the average sample value over every channel.
type Mean struct{}

// NewMean creates a new Mean metric
func NewMean() *Mean {
	return &Mean{}
}

func (m *Mean) Calculate(_, current gocv.Mat) (float64, error) {
	samples, err := floatSamples(current)
	if err != nil {
		return 0, err
	}
	mean, _, _ := summarize(samples)
	return mean, nil
}

func (m *Mean) GetName() string              { return "Mean" }
func (m *Mean) GetDescription() string       { return "Average sample value" }
func (m *Mean) GetRange() (float64, float64) { return math.Inf(-1), math.Inf(1) }

// Minimum is the smallest sample value.
type Minimum struct{}

// NewMinimum creates a new Minimum metric
func NewMinimum() *Minimum {
	return &Minimum{}
}

func (m *Minimum) Calculate(_, current gocv.Mat) (float64, error) {
	samples, err := floatSamples(current)
	if err != nil {
		return 0, err
	}
	_, lo, _ := summarize(samples)
	return lo, nil
}

func (m *Minimum) GetName() string              { return "Min" }
func (m *Minimum) GetDescription() string       { return "Smallest sample value" }
func (m *Minimum) GetRange() (float64, float64) { return math.Inf(-1), math.Inf(1) }

// Maximum is the largest sample value.
type Maximum struct{}

// NewMaximum creates a new Maximum metric
func NewMaximum() *Maximum {
	return &Maximum{}
}

func (m *Maximum) Calculate(_, current gocv.Mat) (float64, error) {
	samples, err := floatSamples(current)
	if err != nil {
		return 0, err
	}
	_, _, hi := summarize(samples)
	return hi, nil
}

func (m *Maximum) GetName() string              { return "Max" }
func (m *Maximum) GetDescription() string       { return "Largest sample value" }
func (m *Maximum) GetRange() (float64, float64) { return math.Inf(-1), math.Inf(1) }

// MSE implements Mean Squared Error between consecutive frames
type MSE struct{}

// NewMSE creates a new MSE metric
func NewMSE() *MSE {
	return &MSE{}
}

func (m *MSE) Calculate(previous, current gocv.Mat) (float64, error) {
	a, err := floatSamples(previous)
	if err != nil {
		return 0, err
	}
	b, err := floatSamples(current)
	if err != nil {
		return 0, err
	}

	if previous.Rows() != current.Rows() || previous.Cols() != current.Cols() || len(a) != len(b) {
		return 0, fmt.Errorf("image dimensions mismatch")
	}

	sumSquaredDiff := 0.0
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sumSquaredDiff += diff * diff
	}
	return sumSquaredDiff / float64(len(a)), nil
}

func (m *MSE) GetName() string {
	return "MSE"
}

func (m *MSE) GetDescription() string {
	return "Mean Squared Error against the previous frame"
}

func (m *MSE) GetRange() (float64, float64) {
	return 0, math.Inf(1)
}

// PSNR implements Peak Signal-to-Noise Ratio for unit-range float images
type PSNR struct {
	mse MSE
}

// NewPSNR creates a new PSNR metric
func NewPSNR() *PSNR {
	return &PSNR{}
}

func (p *PSNR) Calculate(previous, current gocv.Mat) (float64, error) {
	mse, err := p.mse.Calculate(previous, current)
	if err != nil {
		return 0, err
	}
	if mse == 0 {
		return math.Inf(1), nil
	}
	// Peak signal is 1.0 for [0,1] samples.
	return 10 * math.Log10(1.0/mse), nil
}

func (p *PSNR) GetName() string {
	return "PSNR"
}

func (p *PSNR) GetDescription() string {
	return "Peak Signal-to-Noise Ratio against the previous frame"
}

func (p *PSNR) GetRange() (float64, float64) {
	return 0, math.Inf(1)
}

func floatSamples(m gocv.Mat) ([]float32, error) {
	if m.Empty() {
		return nil, fmt.Errorf("empty image")
	}
	if m.Type() != gocv.MatTypeCV32FC1 && m.Type() != gocv.MatTypeCV32FC3 {
		return nil, fmt.Errorf("unsupported image type %v", m.Type())
	}
	if !m.IsContinuous() {
		return nil, fmt.Errorf("image data is not continuous")
	}
	return m.DataPtrFloat32()
}

func summarize(samples []float32) (mean, lo, hi float64) {
	if len(samples) == 0 {
		return 0, 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	sum := 0.0
	for _, s := range samples {
		v := float64(s)
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return sum / float64(len(samples)), lo, hi
}
