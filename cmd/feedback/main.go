// Video Feedback Simulator
// License: MIT
// Version: 1.0.0 - Ordered pipeline, dump and display sinks

// Command feedback simulates pointing a camera at its own monitor.
//
// Usage:
//
//	feedback [directive ...]
//
// Every directive is a keyword, optionally followed by =value. Stage
// directives append one transform to the pipeline in the order given:
//
//	--blur=5 --roll=1 --zoom=1.01 --blend=0.1 --crawl=1,0,0,0.5 --histeq
//
// With --dump=DIR frames are written to DIR instead of being shown in a
// window. Run "feedback transforms" for the list of stages and
// "feedback preset FILE directive ..." to save a directive sequence.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"fyne.io/fyne/v2/app"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"video-feedback/internal/algorithms"
	"video-feedback/internal/config"
	"video-feedback/internal/core"
	"video-feedback/internal/gui"
	"video-feedback/internal/io"
	"video-feedback/internal/metrics"
)

const (
	AppName    = "Video Feedback"
	AppID      = "org.videofeedback.simulator"
	AppVersion = "1.0.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "feedback [directive ...]",
		Short: "Simulate video feedback",
		Long: `Simulate pointing a camera at its own monitor.

Every tick the current image runs through the pipeline built from the
stage directives, and the result becomes the next tick's input.

Stage directives (applied in the order given, repeats allowed):
  blur=N            gaussian blur with an NxN kernel, N odd
  sharpen=S         unsharp mask of strength S
  roll=D            rotate by D degrees about the centre
  zoom=F            magnify by F in [1,2]
  blend=B           mix B of the current image with 1-B of the tick's input
  crawl=DS,DV,DSV,D displace pixels by their hue, saturation and value
  noise=L,M         add uniform noise of amplitude L to a fraction 1-M of pixels
  histeq            equalize the histogram (value channel in colour)
  invert            invert (value channel in colour)

Other directives:
  rows=N cols=N depth=1|3 seed=N initial=IMAGE
  dump=DIR nframes=N format=png|webp|bmp|tiff
  preset=FILE.yaml debug`,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if slices.Contains(args, "-h") || slices.Contains(args, "--help") {
				return cmd.Help()
			}
			cfg, err := config.Parse(args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "transforms",
		Short: "List the available pipeline stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), renderKinds(algorithms.Kinds()))
			return err
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "metrics",
		Short: "List the per-frame statistics logged with debug",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), renderMetrics(metrics.NewEvaluator().GetMetricInfo()))
			return err
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "preset FILE directive [directive ...]",
		Short: "Save a directive sequence as a YAML preset",
		Long: `Validate the directives and write them to FILE, which can then be
replayed with preset=FILE.`,
		Args:               cobra.MinimumNArgs(2),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, directives := args[0], args[1:]
			preset, err := config.NewPreset(strings.Join(directives, " "), directives)
			if err != nil {
				return err
			}
			if err := config.SavePreset(path, preset); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved %d directives to %s\n", len(directives), path)
			return err
		},
	})

	return root
}

var (
	kindStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f")).Width(10)
	nameStyle = lipgloss.NewStyle().Width(22)
	descStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
)

func renderKinds(kinds []algorithms.KindInfo) string {
	rows := make([]string, len(kinds))
	for i, k := range kinds {
		rows[i] = lipgloss.JoinHorizontal(lipgloss.Top,
			kindStyle.Render(string(k.Kind)),
			nameStyle.Render(k.Name),
			descStyle.Render(k.Description),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderMetrics(info []metrics.MetricInfo) string {
	rows := make([]string, len(info))
	for i, m := range info {
		rows[i] = lipgloss.JoinHorizontal(lipgloss.Top,
			kindStyle.Render(strings.ToLower(m.Name)),
			nameStyle.Render(fmt.Sprintf("[%g, %g]", m.Min, m.Max)),
			descStyle.Render(m.Description),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func run(parent context.Context, cfg *config.Config) error {
	logger := initLogger(cfg.Debug)
	logger.WithFields(logrus.Fields{
		"version": AppVersion,
		"size":    fmt.Sprintf("%dx%dx%d", cfg.Cols, cfg.Rows, cfg.Depth),
		"stages":  len(cfg.Stages),
		"dump":    cfg.DumpMode(),
	}).Info("Starting " + AppName)

	seed, err := cfg.ResolveSeed()
	if err != nil {
		return err
	}
	logger.WithField("seed", seed).Debug("Random seed resolved")
	rng := core.NewRNG(seed)

	img, err := seedImage(cfg, rng, logger)
	if err != nil {
		return err
	}

	pipeline, err := core.NewPipeline(cfg, rng, logger)
	if err != nil {
		img.Close()
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stats core.Stats
	if cfg.DumpMode() {
		stats, err = runDump(ctx, cfg, pipeline, img, logger)
	} else {
		stats, err = runDisplay(ctx, cfg, pipeline, img, logger)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "fps %g\n", stats.FPS)
	return nil
}

func seedImage(cfg *config.Config, rng *rand.Rand, logger *logrus.Logger) (gocv.Mat, error) {
	if cfg.Initial != "" {
		return io.NewImageLoader(logger).LoadInitial(cfg.Initial, cfg.Rows, cfg.Cols, cfg.Depth)
	}
	return core.RandomImage(cfg.Rows, cfg.Cols, cfg.Depth, rng)
}

func runDump(ctx context.Context, cfg *config.Config, pipeline *core.Pipeline, img gocv.Mat, logger *logrus.Logger) (core.Stats, error) {
	writer, err := io.NewFrameWriter(cfg.DumpDir, cfg.Format, logger)
	if err != nil {
		img.Close()
		return core.Stats{}, err
	}

	loop, err := core.NewLoop(pipeline, img, writer, cfg.NFrames, logger)
	if err != nil {
		img.Close()
		return core.Stats{}, err
	}
	defer loop.Close()

	return loop.Run(ctx)
}

func runDisplay(ctx context.Context, cfg *config.Config, pipeline *core.Pipeline, img gocv.Mat, logger *logrus.Logger) (core.Stats, error) {
	fyneApp := app.NewWithID(AppID)
	display := gui.NewDisplay(fyneApp, AppName, cfg.Rows, cfg.Cols, logger)

	loop, err := core.NewLoop(pipeline, img, display, core.Unlimited, logger)
	if err != nil {
		img.Close()
		return core.Stats{}, err
	}
	defer loop.Close()

	var (
		stats  core.Stats
		runErr error
	)
	display.ShowAndRun(func() {
		stats, runErr = loop.Run(ctx)
	})

	logger.Info("Application shutting down gracefully")
	return stats, runErr
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
