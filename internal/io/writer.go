package io

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"golang.org/x/image/tiff"

	"video-feedback/internal/algorithms"
)

// FrameWriter is the dump-mode sink: it writes every frame it receives to
// <dir>/frameNNNNN.<format>.
type FrameWriter struct {
	dir    string
	format string
	clip   *algorithms.Clip
	logger *logrus.Logger
}

// NewFrameWriter creates dir if needed. format is one of png, webp, bmp, tiff.
func NewFrameWriter(dir, format string, logger *logrus.Logger) (*FrameWriter, error) {
	switch format {
	case "png", "webp", "bmp", "tiff":
	default:
		return nil, fmt.Errorf("unsupported frame format: %q", format)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create dump directory: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FrameWriter{dir: dir, format: format, clip: algorithms.NewClip(), logger: logger}, nil
}

// Path returns the file name used for frame.
func (w *FrameWriter) Path(frame int) string {
	return filepath.Join(w.dir, fmt.Sprintf("frame%05d.%s", frame, w.format))
}

// Consume clips img to 1.0, quantises it to 8 bits per channel and writes
// it. Negative samples saturate to 0 during quantisation.
func (w *FrameWriter) Consume(frame int, img gocv.Mat) error {
	clipped, err := w.clip.Apply(img, img)
	if err != nil {
		return fmt.Errorf("frame %d: %w", frame, err)
	}
	defer clipped.Close()

	out, err := ToImage(clipped)
	if err != nil {
		return fmt.Errorf("frame %d: %w", frame, err)
	}

	path := w.Path(frame)
	if err := w.save(out, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	w.logger.WithFields(logrus.Fields{
		"frame": frame,
		"path":  path,
	}).Debug("SINK: Frame written")
	return nil
}

// Closed is always false; a FrameWriter stops when the frame budget runs out.
func (w *FrameWriter) Closed() bool {
	return false
}

func (w *FrameWriter) save(img image.Image, path string) error {
	switch w.format {
	case "webp":
		return encodeFile(path, func(f *os.File) error {
			return webp.Encode(f, img, &webp.Options{Lossless: true})
		})
	case "tiff":
		return encodeFile(path, func(f *os.File) error {
			return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
		})
	default:
		return imaging.Save(img, path)
	}
}

func encodeFile(path string, encode func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ToImage converts a float feedback image with samples in [0,1] to an 8-bit
// image.Image. Samples outside the range saturate.
func ToImage(img gocv.Mat) (image.Image, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	var byteType gocv.MatType
	switch img.Type() {
	case gocv.MatTypeCV32FC1:
		byteType = gocv.MatTypeCV8UC1
	case gocv.MatTypeCV32FC3:
		byteType = gocv.MatTypeCV8UC3
	default:
		return nil, fmt.Errorf("unsupported image type %v", img.Type())
	}

	bytes := gocv.NewMat()
	defer bytes.Close()
	img.ConvertToWithParams(&bytes, byteType, 255.0, 0)

	return bytes.ToImage()
}
