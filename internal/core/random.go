package core

import (
	"fmt"
	"math/rand/v2"

	"gocv.io/x/gocv"
)

// NewRNG returns the run's random source. Every random draw of a run, the
// seed image and the noise stage included, comes from this one generator,
// so equal seeds reproduce equal frame sequences.
func NewRNG(seed int32) *rand.Rand {
	s := uint64(uint32(seed))
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

// RandomImage returns a rows x cols image with depth channels (1 or 3) whose
// samples are drawn uniformly from [0,1).
func RandomImage(rows, cols, depth int, rng *rand.Rand) (gocv.Mat, error) {
	if rows <= 0 || cols <= 0 {
		return gocv.NewMat(), fmt.Errorf("invalid image dimensions: %dx%d", cols, rows)
	}

	var matType gocv.MatType
	switch depth {
	case 1:
		matType = gocv.MatTypeCV32FC1
	case 3:
		matType = gocv.MatTypeCV32FC3
	default:
		return gocv.NewMat(), fmt.Errorf("unsupported depth %d", depth)
	}

	img := gocv.NewMatWithSize(rows, cols, matType)
	data, err := img.DataPtrFloat32()
	if err != nil {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("access image data: %w", err)
	}
	for i := range data {
		data[i] = rng.Float32()
	}
	return img, nil
}
