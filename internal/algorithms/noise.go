package algorithms

import (
	"fmt"
	"math/rand/v2"

	"gocv.io/x/gocv"
)

// Noise adds uniform noise in [-Level, Level) to a random subset of pixels.
//
// A pixel is selected when its uniform draw exceeds Mutate, so a larger
// Mutate selects fewer pixels. The mask is shared by all channels of a
// pixel; each channel draws its own noise value.
type Noise struct {
	Level  float64
	Mutate float64
	rng    *rand.Rand
}

// NewNoise returns a Noise stage drawing from rng. The generator is owned by
// the run and shared with no other goroutine.
func NewNoise(level, mutate float64, rng *rand.Rand) *Noise {
	return &Noise{Level: level, Mutate: mutate, rng: rng}
}

func (n *Noise) Kind() Kind   { return KindNoise }
func (n *Noise) Name() string { return "Noise" }

func (n *Noise) Apply(current, _ gocv.Mat) (gocv.Mat, error) {
	if err := validateInput(current); err != nil {
		return gocv.NewMat(), err
	}
	if n.rng == nil {
		return gocv.NewMat(), fmt.Errorf("noise stage has no random source")
	}

	output := current.Clone()
	data, err := output.DataPtrFloat32()
	if err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("noise: %w", err)
	}

	channels := output.Channels()
	pixels := output.Rows() * output.Cols()
	for p := 0; p < pixels; p++ {
		if n.rng.Float64() <= n.Mutate {
			continue
		}
		base := p * channels
		for c := 0; c < channels; c++ {
			data[base+c] += float32(2 * n.Level * (n.rng.Float64() - 0.5))
		}
	}
	return output, nil
}
