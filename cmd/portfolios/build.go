package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	portfolios "github.com/alnah/go-portfolios"
	"github.com/alnah/go-portfolios/internal/config"
	"github.com/alnah/go-portfolios/internal/hints"
	"github.com/alnah/go-portfolios/internal/logging"
	"github.com/alnah/go-portfolios/internal/metrics"
)

func newBuildCmd(env *Environment, common *commonFlags) *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Screenshot every project and write the portfolio page",
		Example: `  portfolios build
  portfolios build --source ./projects --output ./public --workers 4
  portfolios build --engine chromedp --format png --timeout 1m`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := viper.New()
			if err := bindBuildFlags(v, cmd.Flags()); err != nil {
				return err
			}
			return runBuild(cmd.Context(), env, common, v)
		},
	}
	addBuildFlags(cmd.Flags(), flags)
	return cmd
}

// runBuild loads configuration from v, runs one build, prints the summary,
// and translates the report into the command's error.
func runBuild(ctx context.Context, env *Environment, common *commonFlags, v *viper.Viper) error {
	cfg, err := config.Load(v, common.config)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return withHint(err, hints.ForConfigNotFound(config.SearchPaths()))
		}
		return err
	}
	if common.verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var collector *metrics.Collector
	if cfg.Metrics.File != "" {
		collector = metrics.New()
	}

	builder, err := portfolios.NewBuilder(builderOptions(cfg, env, logger, collector)...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := builder.Close(); cerr != nil {
			logger.Warn("closing browsers", zap.Error(cerr))
		}
	}()

	if common.verbose {
		fmt.Fprintf(env.Stderr, "Pool size: %d\n", builder.PoolSize())
	}

	report, err := builder.Build(ctx)
	if report != nil {
		printSummary(env, report, err == nil, common.quiet, common.verbose)
	}

	if collector != nil {
		if werr := collector.WriteTextfile(cfg.Metrics.File); werr != nil {
			fmt.Fprintf(env.Stderr, "warning: %v\n", werr)
		}
	}

	if err != nil {
		return withHint(err, hintFor(err, cfg))
	}
	return buildOutcome(report)
}

// builderOptions maps configuration onto Builder options.
func builderOptions(cfg *config.Config, env *Environment, logger *zap.Logger, collector *metrics.Collector) []portfolios.Option {
	opts := []portfolios.Option{
		portfolios.WithSourceDir(cfg.Source.Dir),
		portfolios.WithOutputDir(cfg.Output.Dir),
		portfolios.WithOutputFile(cfg.Output.File),
		portfolios.WithImagesDir(cfg.Output.ImagesDir),
		portfolios.WithEngine(cfg.Screenshot.Engine),
		portfolios.WithCaptureOptions(portfolios.CaptureOptions{
			Format:     cfg.Screenshot.Format,
			Quality:    cfg.Screenshot.Quality,
			Width:      cfg.Screenshot.Width,
			Height:     cfg.Screenshot.Height,
			Timeout:    cfg.Screenshot.Timeout,
			Idle:       cfg.Screenshot.Idle,
			BrowserBin: cfg.Screenshot.BrowserBin,
			NoSandbox:  cfg.Screenshot.NoSandbox,
		}),
		portfolios.WithWorkers(cfg.Screenshot.Workers),
		portfolios.WithRenderOptions(portfolios.RenderOptions{
			Title:   cfg.Site.Title,
			HomeURL: cfg.Site.HomeURL,
			RepoURL: cfg.Site.RepoURL,
		}),
		portfolios.WithUpdated(cfg.Site.Updated),
		portfolios.WithLogger(logger),
	}
	if cfg.Site.Assets != "" {
		opts = append(opts, portfolios.WithAssetPath(cfg.Site.Assets))
	}
	if collector != nil {
		opts = append(opts, portfolios.WithMetrics(collector))
	}
	if env.Now != nil {
		opts = append(opts, portfolios.WithClock(env.Now))
	}
	if env.Capturers != nil {
		opts = append(opts, portfolios.WithCapturerFactory(env.Capturers))
	}
	return opts
}

// buildOutcome turns a written report into the command error.
// Every project failing in the browser points at Chrome rather than at the
// projects, so it surfaces as a browser error.
func buildOutcome(report *portfolios.Report) error {
	failed := report.Failed()
	if len(failed) == 0 {
		return nil
	}

	allBrowser := len(failed) == len(report.Results)
	for _, res := range failed {
		if !isBrowserError(res.Err) {
			allBrowser = false
			break
		}
	}
	if allBrowser {
		err := fmt.Errorf("all %d projects failed: %w", len(failed), failed[0].Err)
		return withHint(err, browserHint(failed[0].Err))
	}

	return fmt.Errorf("%w: %d of %d failed", ErrPartialBuild, len(failed), len(report.Results))
}

// hintFor picks the hint matching a fatal build error.
func hintFor(err error, cfg *config.Config) string {
	switch {
	case errors.Is(err, portfolios.ErrDiscovery):
		return hints.ForSourceDir(cfg.Source.Dir)
	case errors.Is(err, portfolios.ErrOutputDir), errors.Is(err, portfolios.ErrPersist):
		return hints.ForOutputDirectory(cfg.Output.Dir)
	default:
		return browserHint(err)
	}
}

func browserHint(err error) string {
	switch {
	case errors.Is(err, portfolios.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, portfolios.ErrPageLoad):
		return hints.ForTimeout()
	default:
		return ""
	}
}
