// Seed image loading
package io

import (
	"fmt"
	"image"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/webp"
)

// ImageLoader reads an image file and turns it into a feedback seed.
type ImageLoader struct {
	logger *logrus.Logger
}

// NewImageLoader creates a new image loader
func NewImageLoader(logger *logrus.Logger) *ImageLoader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ImageLoader{
		logger: logger,
	}
}

// LoadInitial decodes path, crops and scales it to fill rows x cols, and
// returns it as a float image with samples in [0,1] and depth channels.
func (il *ImageLoader) LoadInitial(path string, rows, cols, depth int) (gocv.Mat, error) {
	if rows <= 0 || cols <= 0 {
		return gocv.NewMat(), fmt.Errorf("invalid target dimensions: %dx%d", cols, rows)
	}
	if depth != 1 && depth != 3 {
		return gocv.NewMat(), fmt.Errorf("unsupported depth %d", depth)
	}

	img, err := il.decode(path)
	if err != nil {
		return gocv.NewMat(), err
	}
	bounds := img.Bounds()

	fitted := imaging.Fill(img, cols, rows, imaging.Center, imaging.Lanczos)

	bgr, err := gocv.ImageToMatRGB(fitted)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("convert %s: %w", path, err)
	}
	defer bgr.Close()

	src := bgr
	if depth == 1 {
		gray := gocv.NewMat()
		defer gray.Close()
		if err := gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray); err != nil {
			return gocv.NewMat(), fmt.Errorf("convert %s to greyscale: %w", path, err)
		}
		src = gray
	}

	out := gocv.NewMat()
	src.ConvertToWithParams(&out, floatType(depth), 1.0/255.0, 0)
	if out.Empty() {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("convert %s to float", path)
	}

	il.logger.WithFields(logrus.Fields{
		"path":     path,
		"source":   fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()),
		"target":   fmt.Sprintf("%dx%d", cols, rows),
		"channels": depth,
	}).Info("LOADER: Initial image loaded")

	return out, nil
}

// decode tries the registered image decoders first and falls back to
// libwebp for files the pure Go WebP decoder rejects.
func (il *ImageLoader) decode(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err == nil {
		return img, nil
	}
	il.logger.WithFields(logrus.Fields{
		"path":  path,
		"error": err,
	}).Debug("LOADER: Registered decoders failed, trying libwebp")

	f, ferr := os.Open(path)
	if ferr != nil {
		return nil, fmt.Errorf("open %s: %w", path, ferr)
	}
	defer f.Close()

	img, werr := webp.Decode(f)
	if werr != nil {
		return nil, fmt.Errorf("decode %s: %w (libwebp: %v)", path, err, werr)
	}
	return img, nil
}

func floatType(depth int) gocv.MatType {
	if depth == 1 {
		return gocv.MatTypeCV32FC1
	}
	return gocv.MatTypeCV32FC3
}
