// internal/core/pipeline.go
// Ordered transform pipeline applied once per feedback tick
package core

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"video-feedback/internal/algorithms"
	"video-feedback/internal/config"
)

// Pipeline is an ordered, immutable sequence of transforms.
type Pipeline struct {
	stages   []algorithms.Transform
	logger   *logrus.Logger
	profiler *StageProfiler
}

// NewPipeline builds one transform per requested stage, in request order.
// Each transform captures only the parameters it uses.
func NewPipeline(cfg *config.Config, rng *rand.Rand, logger *logrus.Logger) (*Pipeline, error) {
	stages := make([]algorithms.Transform, 0, len(cfg.Stages))
	for i, kind := range cfg.Stages {
		stage, err := NewTransform(kind, cfg.Params, rng)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		stages = append(stages, stage)
	}
	return NewPipelineWithStages(stages, logger)
}

// NewPipelineWithStages wraps already constructed transforms.
func NewPipelineWithStages(stages []algorithms.Transform, logger *logrus.Logger) (*Pipeline, error) {
	if len(stages) > config.MaxStages {
		return nil, &config.ConfigurationError{
			Reason: fmt.Sprintf("pipeline has %d stages, at most %d are allowed", len(stages), config.MaxStages),
			Err:    config.ErrPipelineOverflow,
		}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	p := &Pipeline{
		stages: append([]algorithms.Transform(nil), stages...),
		logger: logger,
	}
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		p.profiler = NewStageProfiler(p.Names())
	}
	logger.WithFields(logrus.Fields{
		"stages": p.Names(),
	}).Info("PIPELINE: Built")
	return p, nil
}

// NewTransform constructs the transform for kind from params.
func NewTransform(kind algorithms.Kind, p config.Params, rng *rand.Rand) (algorithms.Transform, error) {
	switch kind {
	case algorithms.KindInvert:
		return algorithms.NewInvert(), nil
	case algorithms.KindColorCrawl:
		return algorithms.NewColorCrawl(p.CrawlDS, p.CrawlDV, p.CrawlDSV, p.CrawlD), nil
	case algorithms.KindNoise:
		if rng == nil {
			return nil, fmt.Errorf("noise stage needs a random source")
		}
		return algorithms.NewNoise(p.Noise, p.Mutate, rng), nil
	case algorithms.KindClip:
		return algorithms.NewClip(), nil
	case algorithms.KindRoll:
		return algorithms.NewRoll(p.Roll), nil
	case algorithms.KindBlend:
		return algorithms.NewBlend(p.Blend), nil
	case algorithms.KindBlur:
		return algorithms.NewBlur(p.Blur), nil
	case algorithms.KindSharpen:
		return algorithms.NewSharpen(p.Sharpen), nil
	case algorithms.KindHistogramEqualize:
		return algorithms.NewHistogramEqualize(), nil
	case algorithms.KindZoom:
		return algorithms.NewZoom(p.Zoom), nil
	default:
		return nil, fmt.Errorf("unknown transform kind: %q", kind)
	}
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Names returns the stage names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, stage := range p.stages {
		names[i] = stage.Name()
	}
	return names
}

// Profile returns the stage timings collected so far, or nil when the
// pipeline was built without debug logging.
func (p *Pipeline) Profile() *StageProfiler {
	return p.profiler
}

// Apply folds img through every stage, left to right. img itself is the
// pre-tick feedback image handed to every stage as previous; it is neither
// modified nor closed. Intermediate results are released as soon as the next
// stage has consumed them.
func (p *Pipeline) Apply(img gocv.Mat) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.NewMat(), fmt.Errorf("pipeline input is empty")
	}
	if len(p.stages) == 0 {
		return img.Clone(), nil
	}

	current := img
	owned := false

	for i, stage := range p.stages {
		start := time.Now()
		result, err := stage.Apply(current, img)
		if owned {
			current.Close()
		}
		if err != nil {
			result.Close()
			p.logger.WithFields(logrus.Fields{
				"step":  i,
				"stage": stage.Name(),
				"error": err,
			}).Error("PIPELINE: Stage failed")
			return gocv.NewMat(), fmt.Errorf("stage %d (%s): %w", i, stage.Name(), err)
		}

		if p.profiler != nil {
			p.profiler.Record(i, time.Since(start))
		}

		current = result
		owned = true
	}

	return current, nil
}
