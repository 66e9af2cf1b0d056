package config

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"slices"

	"video-feedback/internal/algorithms"
)

// MaxStages bounds the number of transforms in a pipeline.
const MaxStages = 100

// SupportedFormats lists the frame file formats of dump mode.
var SupportedFormats = []string{"png", "webp", "bmp", "tiff"}

// Params holds every value a transform, the seed image or a sink may need.
// It is read-only once Parse has returned.
type Params struct {
	Rows int
	Cols int

	Blur    int     // gaussian kernel size, positive odd
	Sharpen float64 // unsharp mask strength
	Roll    float64 // degrees
	Zoom    float64 // [1,2]
	Blend   float64 // [0,1]

	CrawlDS  float64
	CrawlDV  float64
	CrawlDSV float64
	CrawlD   float64

	Noise  float64 // [0,1]
	Mutate float64 // [0,1]

	Depth int   // 1 greyscale, 3 colour
	Seed  int32 // 0 draws a seed from the OS at startup

	DumpDir string // dump mode when non-empty
	NFrames int
	Format  string
	Initial string // optional seed image path
	Debug   bool
}

// Config is the parsed command line: parameters plus the ordered list of
// requested pipeline stages.
type Config struct {
	Params
	Stages []algorithms.Kind
}

// Default returns the parameters used when a directive is not supplied.
func Default() Params {
	return Params{
		Rows:    1080,
		Cols:    1920,
		Blur:    1,
		Sharpen: 0.0,
		Roll:    0.0,
		Zoom:    1.0,
		Blend:   0.5,
		Depth:   3,
		Seed:    0,
		NFrames: 30,
		Format:  "png",
	}
}

// DumpMode reports whether frames are written to files instead of a window.
func (p *Params) DumpMode() bool {
	return p.DumpDir != ""
}

// Validate checks every range constraint and returns the first violation.
func (p *Params) Validate() error {
	if p.Blur < 1 || p.Blur%2 != 1 {
		return configErrorf("blur", "must be a positive odd integer, got %d", p.Blur)
	}
	if p.Blend < 0.0 || p.Blend > 1.0 {
		return configErrorf("blend", "must be in the range [0.0,1.0], got %g", p.Blend)
	}
	if p.Zoom < 1.0 || p.Zoom > 2.0 {
		return configErrorf("zoom", "must be in the range [1.0,2.0], got %g", p.Zoom)
	}
	if p.Noise < 0.0 || p.Noise > 1.0 || p.Mutate < 0.0 || p.Mutate > 1.0 {
		return configErrorf("noise", "both parameters must be in the range [0.0,1.0], got %g,%g", p.Noise, p.Mutate)
	}
	if p.Depth != 1 && p.Depth != 3 {
		return configErrorf("depth", "must be 3 (for RGB) or 1 (for greyscale), got %d", p.Depth)
	}
	if p.Rows < 1 || p.Cols < 1 {
		return configErrorf("rows", "image dimensions must be positive, got %dx%d", p.Cols, p.Rows)
	}
	if p.NFrames < 0 {
		return configErrorf("nframes", "must not be negative, got %d", p.NFrames)
	}
	if !slices.Contains(SupportedFormats, p.Format) {
		return configErrorf("format", "must be one of %v, got %q", SupportedFormats, p.Format)
	}
	return nil
}

// ResolveSeed returns Seed, or 32 bits from the OS entropy pool when Seed is 0.
func (p *Params) ResolveSeed() (int32, error) {
	if p.Seed != 0 {
		return p.Seed, nil
	}
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}
