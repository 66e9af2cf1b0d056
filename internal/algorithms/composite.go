package algorithms

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Blend mixes the running pipeline value with the feedback image committed
// before this tick: Coefficient*current + (1-Coefficient)*previous.
type Blend struct {
	Coefficient float64
}

// NewBlend creates a blend keeping coefficient of the current image
func NewBlend(coefficient float64) *Blend {
	return &Blend{Coefficient: coefficient}
}

func (b *Blend) Kind() Kind   { return KindBlend }
func (b *Blend) Name() string { return "Blend" }

func (b *Blend) Apply(current, previous gocv.Mat) (gocv.Mat, error) {
	if err := validateInput(current); err != nil {
		return gocv.NewMat(), err
	}
	if err := validateInput(previous); err != nil {
		return gocv.NewMat(), fmt.Errorf("previous frame: %w", err)
	}
	if !sameShape(current, previous) {
		return gocv.NewMat(), fmt.Errorf("blend shape mismatch: %dx%d vs previous %dx%d",
			current.Cols(), current.Rows(), previous.Cols(), previous.Rows())
	}

	// The endpoints are exact copies rather than weighted sums.
	switch b.Coefficient {
	case 1:
		return current.Clone(), nil
	case 0:
		return previous.Clone(), nil
	}

	output := gocv.NewMat()
	gocv.AddWeighted(current, b.Coefficient, previous, 1-b.Coefficient, 0, &output)
	if output.Empty() {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("blend produced no output")
	}
	return output, nil
}

// ClipLimit is the upper bound enforced by Clip.
const ClipLimit = 1.0

// Clip replaces every value above 1.0 with 1.0. Values at or below the
// limit, negatives included, are untouched.
type Clip struct{}

// NewClip creates a new Clip transform
func NewClip() *Clip {
	return &Clip{}
}

func (c *Clip) Kind() Kind   { return KindClip }
func (c *Clip) Name() string { return "Clip" }

func (c *Clip) Apply(current, _ gocv.Mat) (gocv.Mat, error) {
	if err := validateInput(current); err != nil {
		return gocv.NewMat(), err
	}

	output := gocv.NewMat()
	gocv.Threshold(current, &output, ClipLimit, ClipLimit, gocv.ThresholdTrunc)
	if output.Empty() {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("clip produced no output")
	}
	return output, nil
}
