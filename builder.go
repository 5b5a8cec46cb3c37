package portfolios

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alnah/go-portfolios/internal/assets"
	"github.com/alnah/go-portfolios/internal/dateutil"
	"github.com/alnah/go-portfolios/internal/fileutil"
	"github.com/alnah/go-portfolios/internal/metrics"
)

// Default source directory.
const DefaultSourceDir = "portfolios"

// Option configures a Builder.
type Option func(*Builder)

// builderConfig holds internal configuration for Builder.
type builderConfig struct {
	sourceDir  string
	outputDir  string
	outputFile string
	imagesDir  string
	engine     string
	capture    CaptureOptions
	workers    int
	assetPath  string
	render     RenderOptions
	updated    string
}

// Builder turns a directory of project sources into a static page.
// Create with NewBuilder, run Build, and Close when done.
type Builder struct {
	cfg      builderConfig
	pool     *CapturerPool
	ownsPool bool
	factory  CapturerFactory
	loader   assets.Loader
	renderer *Renderer
	sink     Sink
	logger   *zap.Logger
	metrics  *metrics.Collector
	now      func() time.Time
}

// WithSourceDir sets the directory scanned for *.yaml and *.yml sources.
func WithSourceDir(dir string) Option {
	return func(b *Builder) { b.cfg.sourceDir = dir }
}

// WithOutputDir sets the directory holding the page and its images.
func WithOutputDir(dir string) Option {
	return func(b *Builder) { b.cfg.outputDir = dir }
}

// WithOutputFile sets the page file name inside the output directory.
func WithOutputFile(name string) Option {
	return func(b *Builder) { b.cfg.outputFile = name }
}

// WithImagesDir sets the screenshot directory, relative to the output directory.
func WithImagesDir(dir string) Option {
	return func(b *Builder) { b.cfg.imagesDir = dir }
}

// WithEngine selects the screenshot engine ("rod" or "chromedp").
func WithEngine(engine string) Option {
	return func(b *Builder) { b.cfg.engine = engine }
}

// WithCaptureOptions sets viewport, format and browser settings.
func WithCaptureOptions(opts CaptureOptions) Option {
	return func(b *Builder) { b.cfg.capture = opts }
}

// WithWorkers bounds concurrent captures. Zero picks a size from GOMAXPROCS.
// Panics if n < 0 (programmer error).
func WithWorkers(n int) Option {
	if n < 0 {
		panic("portfolios: WithWorkers count must not be negative")
	}
	return func(b *Builder) { b.cfg.workers = n }
}

// WithCapturerFactory replaces the browser-backed capturer constructor.
func WithCapturerFactory(f CapturerFactory) Option {
	return func(b *Builder) { b.factory = f }
}

// WithCapturerPool shares an existing pool. The Builder does not close it.
func WithCapturerPool(p *CapturerPool) Option {
	return func(b *Builder) { b.pool = p }
}

// WithAssetPath overrides embedded templates and styles with files from dir.
func WithAssetPath(dir string) Option {
	return func(b *Builder) { b.cfg.assetPath = dir }
}

// WithAssetLoader sets the loader used for the page template and stylesheet.
func WithAssetLoader(l assets.Loader) Option {
	return func(b *Builder) { b.loader = l }
}

// WithRenderOptions sets the page chrome (title, links, asset names).
func WithRenderOptions(opts RenderOptions) Option {
	return func(b *Builder) { b.cfg.render = opts }
}

// WithUpdated sets the "Last updated" stamp: "", a literal, "auto" or "auto:FORMAT".
func WithUpdated(value string) Option {
	return func(b *Builder) { b.cfg.updated = value }
}

// WithSink replaces the file sink.
func WithSink(s Sink) Option {
	return func(b *Builder) { b.sink = s }
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithMetrics records project and build observations on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(b *Builder) { b.metrics = c }
}

// WithClock sets the time source used for the "auto" updated stamp.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a Builder with default configuration.
// Returns an error if assets cannot be loaded or options are inconsistent.
func NewBuilder(opts ...Option) (*Builder, error) {
	b := &Builder{
		cfg: builderConfig{
			sourceDir:  DefaultSourceDir,
			outputDir:  DefaultOutputDir,
			outputFile: DefaultOutputFile,
			imagesDir:  DefaultImagesDir,
			engine:     EngineRod,
			capture:    DefaultCaptureOptions(),
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = zap.NewNop()
	}

	if err := b.cfg.capture.Validate(); err != nil {
		return nil, err
	}
	b.cfg.capture = b.cfg.capture.withDefaults()

	if filepath.IsAbs(b.cfg.imagesDir) || strings.Contains(b.cfg.imagesDir, "..") {
		return nil, fmt.Errorf("%w: images directory must be relative, got %q", ErrOutputDir, b.cfg.imagesDir)
	}

	if _, err := dateutil.Stamp(b.cfg.updated, b.now()); err != nil {
		return nil, err
	}

	if err := b.initRenderer(); err != nil {
		return nil, err
	}

	if b.sink == nil {
		b.sink = NewFileSink(b.cfg.outputDir, b.cfg.outputFile)
	}

	if b.pool == nil {
		if b.factory == nil {
			// Fail on an unknown engine now rather than inside every job.
			if _, err := NewCapturer(b.cfg.engine, b.cfg.capture); err != nil {
				return nil, err
			}
			engine, capture := b.cfg.engine, b.cfg.capture
			b.factory = func() (Capturer, error) {
				return NewCapturer(engine, capture)
			}
		}
		b.pool = NewCapturerPool(ResolvePoolSize(b.cfg.workers), b.factory)
		b.ownsPool = true
	}

	return b, nil
}

// initRenderer resolves the asset loader and parses the page template.
func (b *Builder) initRenderer() error {
	if b.loader == nil {
		if b.cfg.assetPath != "" {
			resolver, err := assets.NewResolver(b.cfg.assetPath)
			if err != nil {
				return fmt.Errorf("asset path: %w", err)
			}
			b.loader = resolver
		} else {
			b.loader = assets.NewEmbeddedLoader()
		}
	}

	r, err := NewRenderer(b.loader, b.cfg.render)
	if err != nil {
		return err
	}
	b.renderer = r
	return nil
}

// Build discovers sources, captures every project on the bounded pool, waits
// for all of them, then renders and persists the page exactly once.
//
// Projects that fail to parse or capture are left out of the page and
// reported in the returned Report. A discovery error aborts before anything
// is written. If ctx is cancelled, Build returns the partial Report and
// ctx.Err() without writing the page.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{
		BuildID:    uuid.New(),
		OutputPath: b.outputPath(),
	}
	log := b.logger.With(zap.String("build_id", report.BuildID.String()))

	sources, err := DiscoverSources(b.cfg.sourceDir)
	if err != nil {
		log.Error("discovery failed", zap.String("source_dir", b.cfg.sourceDir), zap.Error(err))
		return nil, err
	}

	log.Info("build started",
		zap.String("source_dir", b.cfg.sourceDir),
		zap.Int("sources", len(sources)),
		zap.Int("workers", b.pool.Size()),
	)

	report.Results = b.captureAll(ctx, sources, log)

	if err := ctx.Err(); err != nil {
		report.Duration = time.Since(start)
		log.Warn("build cancelled", zap.Error(err))
		return report, err
	}

	updated, err := dateutil.Stamp(b.cfg.updated, b.now())
	if err != nil {
		return report, err
	}

	html, err := b.renderer.Render(Page{Projects: report.Projects(), Updated: updated})
	if err != nil {
		return report, err
	}
	if err := b.sink.Persist(html); err != nil {
		return report, err
	}

	report.Duration = time.Since(start)
	if b.metrics != nil {
		b.metrics.ObserveBuild(report.Duration, b.now())
	}

	log.Info("site written",
		zap.String("output", report.OutputPath),
		zap.Int("projects", len(report.Succeeded())),
		zap.Int("failed", len(report.Failed())),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// captureAll runs one job per source on at most pool.Size() goroutines and
// returns when every job has settled. Results keep discovery order.
func (b *Builder) captureAll(ctx context.Context, sources []Source, log *zap.Logger) []ProjectResult {
	results := make([]ProjectResult, len(sources))
	if len(sources) == 0 {
		return results
	}

	// Sources are parsed up front so only well-formed projects claim a
	// screenshot name. Names come from the base name and the second claimant
	// loses. Compared case-insensitively so "A.yaml" and "a.yml" cannot
	// overwrite each other on case-insensitive filesystems.
	projects := make([]*Project, len(sources))
	pending := make([]int, 0, len(sources))
	claimed := make(map[string]string, len(sources))
	for i, src := range sources {
		project, err := ReadProject(src)
		if err != nil {
			results[i] = ProjectResult{Source: src, Err: err}
			b.recordFailure(log, results[i])
			continue
		}
		key := strings.ToLower(src.Base)
		if first, ok := claimed[key]; ok {
			results[i] = ProjectResult{
				Source: src,
				Err:    fmt.Errorf("%w: %s and %s both map to %q", ErrDuplicateSource, first, src.Name, src.Base),
			}
			b.recordFailure(log, results[i])
			continue
		}
		claimed[key] = src.Name
		projects[i] = project
		pending = append(pending, i)
	}

	concurrency := b.pool.Size()
	if concurrency > len(pending) {
		concurrency = len(pending)
	}

	var wg sync.WaitGroup
	jobs := make(chan int, len(pending))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = ProjectResult{Source: sources[idx], Err: ctx.Err()}
					continue
				}
				results[idx] = b.captureProject(ctx, sources[idx], projects[idx])
				if results[idx].OK() {
					b.recordSuccess(log, results[idx])
				} else {
					b.recordFailure(log, results[idx])
				}
			}
		}()
	}

	for _, idx := range pending {
		jobs <- idx
	}
	close(jobs)

	wg.Wait()
	return results
}

// captureProject captures the demo URL of a parsed project.
// Recovers from panics so one bad job cannot take the build down.
func (b *Builder) captureProject(ctx context.Context, src Source, project *Project) (res ProjectResult) {
	start := time.Now()
	res.Source = src
	defer func() {
		if r := recover(); r != nil {
			res.Project = nil
			res.Err = fmt.Errorf("internal error: %v", r)
		}
		res.Duration = time.Since(start)
	}()

	imageName, err := fileutil.ImageName(src.Base, b.cfg.capture.Extension())
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrWriteImage, err)
		return res
	}

	capturer, err := b.pool.Acquire(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	defer b.pool.Release(capturer)

	imagePath := filepath.Join(b.cfg.outputDir, b.cfg.imagesDir, imageName)
	if err := capturer.Capture(ctx, project.DemoURL, imagePath); err != nil {
		res.Err = err
		return res
	}

	project.Screenshot = path.Join(filepath.ToSlash(b.cfg.imagesDir), imageName)
	res.Project = project
	return res
}

func (b *Builder) recordSuccess(log *zap.Logger, res ProjectResult) {
	log.Debug("project captured",
		zap.String("source", res.Source.Path),
		zap.String("screenshot", res.Project.Screenshot),
		zap.Duration("duration", res.Duration),
	)
	if b.metrics != nil {
		b.metrics.ObserveProject(metrics.StatusSuccess, res.Duration)
	}
}

func (b *Builder) recordFailure(log *zap.Logger, res ProjectResult) {
	log.Error("project failed",
		zap.String("source", res.Source.Path),
		zap.Error(res.Err),
		zap.Duration("duration", res.Duration),
	)
	if b.metrics != nil {
		b.metrics.ObserveProject(metrics.StatusFailed, res.Duration)
	}
}

// outputPath reports where the page goes, for the Report.
func (b *Builder) outputPath() string {
	if p, ok := b.sink.(interface{ Path() string }); ok {
		return p.Path()
	}
	return filepath.Join(b.cfg.outputDir, b.cfg.outputFile)
}

// PoolSize returns the number of concurrent captures the Builder allows.
func (b *Builder) PoolSize() int {
	return b.pool.Size()
}

// Close releases browser resources if the Builder owns its pool.
func (b *Builder) Close() error {
	if b.ownsPool && b.pool != nil {
		return b.pool.Close()
	}
	return nil
}
