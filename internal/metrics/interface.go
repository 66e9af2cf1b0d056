// Per-frame statistics for feedback images
package metrics

import (
	"fmt"
	"sort"

	"gocv.io/x/gocv"
)

// Metric compares the pre-tick image with the image a tick produced.
// Single-image statistics ignore previous.
type Metric interface {
	// Calculate computes the metric value
	Calculate(previous, current gocv.Mat) (float64, error)

	GetName() string
	GetDescription() string

	// GetRange returns the value range (min, max)
	GetRange() (float64, float64)
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

// FrameStats summarises one committed frame.
type FrameStats struct {
	Mean float64
	Min  float64
	Max  float64
	MSE  float64 // against the pre-tick image
	PSNR float64 // +Inf when the tick changed nothing
}

// MetricInfo describes a registered metric.
type MetricInfo struct {
	Name        string
	Description string
	Min         float64
	Max         float64
}

// NewEvaluator creates an evaluator with the default metrics registered.
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}
	e.RegisterDefaultMetrics()
	return e
}

// RegisterDefaultMetrics registers all default metrics
func (e *Evaluator) RegisterDefaultMetrics() {
	e.Register("mean", NewMean())
	e.Register("min", NewMinimum())
	e.Register("max", NewMaximum())
	e.Register("mse", NewMSE())
	e.Register("psnr", NewPSNR())
}

// Register registers a metric
func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

// Calculate calculates a specific metric
func (e *Evaluator) Calculate(name string, previous, current gocv.Mat) (float64, error) {
	metric, exists := e.metrics[name]
	if !exists {
		return 0, fmt.Errorf("metric not found: %s", name)
	}
	return metric.Calculate(previous, current)
}

// Frame computes the statistics logged for every frame in debug mode from
// the registered mean, min, max, mse and psnr metrics.
func (e *Evaluator) Frame(previous, current gocv.Mat) (FrameStats, error) {
	var stats FrameStats
	fields := []struct {
		name string
		dst  *float64
	}{
		{"mean", &stats.Mean},
		{"min", &stats.Min},
		{"max", &stats.Max},
		{"mse", &stats.MSE},
		{"psnr", &stats.PSNR},
	}
	for _, f := range fields {
		value, err := e.Calculate(f.name, previous, current)
		if err != nil {
			return FrameStats{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = value
	}
	return stats, nil
}

// GetMetricInfo returns information about all metrics, sorted by key.
func (e *Evaluator) GetMetricInfo() []MetricInfo {
	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	info := make([]MetricInfo, 0, len(names))
	for _, name := range names {
		metric := e.metrics[name]
		lo, hi := metric.GetRange()
		info = append(info, MetricInfo{
			Name:        metric.GetName(),
			Description: metric.GetDescription(),
			Min:         lo,
			Max:         hi,
		})
	}
	return info
}
