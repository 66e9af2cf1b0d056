// Feedback loop: pipeline application, state commit and frame delivery
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"video-feedback/internal/metrics"
)

// Unlimited is the frame budget of a loop that runs until its sink closes or
// its context is cancelled.
const Unlimited = -1

// State is the lifecycle state of a Loop.
type State int

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Sink receives each committed frame. img is owned by the loop and is only
// valid for the duration of the call.
type Sink interface {
	Consume(frame int, img gocv.Mat) error
	Closed() bool
}

// Stats summarises a finished run.
type Stats struct {
	Frames  int
	Elapsed time.Duration
	FPS     float64
}

// Loop drives the feedback iteration: each tick maps the current image
// through the pipeline and commits the result as the next seed.
type Loop struct {
	mu       sync.Mutex
	pipeline *Pipeline
	state    *FeedbackState
	sink     Sink
	budget   int
	status   State
	logger   *logrus.Logger
	eval     *metrics.Evaluator
}

// NewLoop takes ownership of seed when it succeeds. budget is the number of frames to deliver
// before stopping, or Unlimited.
func NewLoop(pipeline *Pipeline, seed gocv.Mat, sink Sink, budget int, logger *logrus.Logger) (*Loop, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("loop needs a pipeline")
	}
	if sink == nil {
		return nil, fmt.Errorf("loop needs a sink")
	}
	if budget < 0 && budget != Unlimited {
		return nil, fmt.Errorf("invalid frame budget %d", budget)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	state, err := NewFeedbackState(seed)
	if err != nil {
		return nil, err
	}

	return &Loop{
		pipeline: pipeline,
		state:    state,
		sink:     sink,
		budget:   budget,
		status:   Running,
		logger:   logger,
		eval:     metrics.NewEvaluator(),
	}, nil
}

// State returns the loop's lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Frames returns the number of ticks committed so far.
func (l *Loop) Frames() int {
	return l.state.Frame()
}

// Image returns the current feedback image. It stays valid until the next
// Tick or Close.
func (l *Loop) Image() gocv.Mat {
	return l.state.Image()
}

// Tick runs one iteration: apply the pipeline to the current image, commit
// the result, and hand it to the sink with its zero-based frame index.
func (l *Loop) Tick() error {
	if l.State() == Stopped {
		return fmt.Errorf("loop is stopped")
	}

	previous := l.state.Image()
	next, err := l.pipeline.Apply(previous)
	if err != nil {
		l.stop()
		return fmt.Errorf("tick %d: %w", l.state.Frame(), err)
	}

	if l.logger.IsLevelEnabled(logrus.DebugLevel) {
		l.logFrameStats(previous, next)
	}

	frame := l.state.Frame()
	if err := l.state.Commit(next); err != nil {
		next.Close()
		l.stop()
		return fmt.Errorf("tick %d: %w", frame, err)
	}

	if err := l.sink.Consume(frame, l.state.Image()); err != nil {
		l.stop()
		l.logger.WithFields(logrus.Fields{
			"frame": frame,
			"error": err,
		}).Error("LOOP: Sink failed")
		return fmt.Errorf("frame %d: %w", frame, err)
	}
	return nil
}

// Run ticks until the frame budget is spent, the sink closes, or ctx is
// cancelled. Stop conditions are only checked between ticks.
func (l *Loop) Run(ctx context.Context) (Stats, error) {
	l.logger.WithFields(logrus.Fields{
		"stages": l.pipeline.Len(),
		"budget": l.budget,
	}).Info("LOOP: Starting")

	start := time.Now()
	delivered := 0
	var runErr error

	for {
		if err := ctx.Err(); err != nil {
			l.logger.WithField("reason", err).Info("LOOP: Cancelled")
			break
		}
		if l.sink.Closed() {
			l.logger.Info("LOOP: Sink closed")
			break
		}
		if l.budget != Unlimited && delivered >= l.budget {
			break
		}

		if err := l.Tick(); err != nil {
			runErr = err
			break
		}
		delivered++
	}

	l.stop()
	stats := newStats(delivered, time.Since(start))
	if profile := l.pipeline.Profile(); profile != nil {
		profile.Log(l.logger)
	}

	l.logger.WithFields(logrus.Fields{
		"frames":  stats.Frames,
		"elapsed": stats.Elapsed,
		"fps":     stats.FPS,
	}).Info("LOOP: Finished")
	return stats, runErr
}

// Close stops the loop and releases the feedback image.
func (l *Loop) Close() {
	l.stop()
	l.state.Close()
}

func (l *Loop) stop() {
	l.mu.Lock()
	l.status = Stopped
	l.mu.Unlock()
}

func (l *Loop) logFrameStats(previous, next gocv.Mat) {
	stats, err := l.eval.Frame(previous, next)
	if err != nil {
		l.logger.WithError(err).Debug("LOOP: Frame statistics unavailable")
		return
	}
	l.logger.WithFields(logrus.Fields{
		"frame": l.state.Frame(),
		"mean":  stats.Mean,
		"min":   stats.Min,
		"max":   stats.Max,
		"mse":   stats.MSE,
		"psnr":  stats.PSNR,
	}).Debug("LOOP: Frame statistics")
}

func newStats(frames int, elapsed time.Duration) Stats {
	s := Stats{Frames: frames, Elapsed: elapsed}
	if elapsed > 0 {
		s.FPS = float64(frames) / elapsed.Seconds()
	}
	return s
}
