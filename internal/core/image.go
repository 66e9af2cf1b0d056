// Feedback image state carried from one tick to the next
package core

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// MaxDimension bounds rows and cols of a feedback image.
const MaxDimension = 16384

// FeedbackState owns the current feedback image and the number of ticks
// committed so far. Readers such as a display sink may inspect it from
// another goroutine.
type FeedbackState struct {
	mu    sync.RWMutex
	image gocv.Mat
	frame int
}

// NewFeedbackState takes ownership of seed.
func NewFeedbackState(seed gocv.Mat) (*FeedbackState, error) {
	if err := ValidateImage(seed); err != nil {
		return nil, fmt.Errorf("seed image: %w", err)
	}
	return &FeedbackState{image: seed}, nil
}

// Image returns the current feedback image. The caller must not close it.
func (s *FeedbackState) Image() gocv.Mat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.image
}

// Frame returns the number of committed ticks.
func (s *FeedbackState) Frame() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

// Commit replaces the current image with next, releasing the old one.
func (s *FeedbackState) Commit(next gocv.Mat) error {
	if err := ValidateImage(next); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if next.Rows() != s.image.Rows() || next.Cols() != s.image.Cols() || next.Channels() != s.image.Channels() {
		return fmt.Errorf("feedback image changed shape: %dx%dx%d -> %dx%dx%d",
			s.image.Cols(), s.image.Rows(), s.image.Channels(),
			next.Cols(), next.Rows(), next.Channels())
	}

	s.image.Close()
	s.image = next
	s.frame++
	return nil
}

// Close releases the current image.
func (s *FeedbackState) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.image.Empty() {
		s.image.Close()
	}
	s.image = gocv.NewMat()
}

// ValidateImage checks that mat is usable as a feedback image: non-empty,
// within MaxDimension, and 32-bit float with 1 or 3 channels.
func ValidateImage(mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("image is empty")
	}

	rows, cols := mat.Rows(), mat.Cols()
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("invalid image dimensions: %dx%d", cols, rows)
	}
	if rows > MaxDimension || cols > MaxDimension {
		return fmt.Errorf("image too large: %dx%d (max %dx%d)", cols, rows, MaxDimension, MaxDimension)
	}

	switch mat.Type() {
	case gocv.MatTypeCV32FC1, gocv.MatTypeCV32FC3:
	default:
		return fmt.Errorf("unsupported image type %v: need 32-bit float with 1 or 3 channels", mat.Type())
	}
	return nil
}
