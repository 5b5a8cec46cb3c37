package portfolios

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alnah/go-portfolios/internal/dateutil"
	"github.com/alnah/go-portfolios/internal/metrics"
)

// newTestBuilder wires a Builder to fake capturers and temp directories.
func newTestBuilder(t *testing.T, ff *fakeFactory, sourceDir, outputDir string, opts ...Option) *Builder {
	t.Helper()

	base := []Option{
		WithSourceDir(sourceDir),
		WithOutputDir(outputDir),
		WithCapturerFactory(ff.New),
		WithClock(fixedClock),
	}
	b, err := NewBuilder(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func readPage(t *testing.T, path string) (*goquery.Document, []byte) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read page: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to parse page: %v", err)
	}
	return doc, data
}

// ---------------------------------------------------------------------------
// TestBuild - end-to-end with fake capturers
// ---------------------------------------------------------------------------

func TestBuild_TwoProjects(t *testing.T) {
	t.Parallel()

	sourceDir, outputDir := buildDirs(t)
	writeSource(t, sourceDir, "a.yaml", projectYAML("alpha", "https://alpha.example.com"))
	writeSource(t, sourceDir, "b.yaml", projectYAML("beta", "https://beta.example.com"))

	ff := &fakeFactory{}
	b := newTestBuilder(t, ff, sourceDir, outputDir)

	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := len(report.Succeeded()); got != 2 {
		t.Fatalf("Succeeded() = %d, want 2", got)
	}
	if report.OutputPath != filepath.Join(outputDir, "index.html") {
		t.Errorf("OutputPath = %q", report.OutputPath)
	}

	for _, name := range []string{"a.jpg", "b.jpg"} {
		if _, err := os.Stat(filepath.Join(outputDir, "images", name)); err != nil {
			t.Errorf("screenshot %s missing: %v", name, err)
		}
	}

	doc, _ := readPage(t, report.OutputPath)
	cards := doc.Find(".card")
	if cards.Length() != 2 {
		t.Fatalf("found %d cards, want 2", cards.Length())
	}

	want := []struct{ title, img, demo, repo string }{
		{"alpha", "images/a.jpg", "https://alpha.example.com", "https://github.com/alnah/alpha"},
		{"beta", "images/b.jpg", "https://beta.example.com", "https://github.com/alnah/beta"},
	}
	cards.Each(func(i int, card *goquery.Selection) {
		w := want[i]
		if got := card.Find(".card-title").Text(); got != w.title {
			t.Errorf("card %d title = %q, want %q", i, got, w.title)
		}
		if got, _ := card.Find("img").Attr("src"); got != w.img {
			t.Errorf("card %d img = %q, want %q", i, got, w.img)
		}
		if got := card.Find(".card-content p").Text(); got != "A project called "+w.title {
			t.Errorf("card %d description = %q", i, got)
		}
		links := card.Find(".card-action a")
		if links.Length() != 2 {
			t.Fatalf("card %d has %d links, want 2", i, links.Length())
		}
		if got, _ := links.Eq(0).Attr("href"); got != w.demo {
			t.Errorf("card %d demo = %q, want %q", i, got, w.demo)
		}
		if got, _ := links.Eq(1).Attr("href"); got != w.repo {
			t.Errorf("card %d repo = %q, want %q", i, got, w.repo)
		}
	})

	for i, p := range report.Projects() {
		if p.Screenshot != want[i].img {
			t.Errorf("Projects()[%d].Screenshot = %q, want %q", i, p.Screenshot, want[i].img)
		}
	}
}

func TestBuild_NoSources(t *testing.T) {
	t.Parallel()

	sourceDir, outputDir := buildDirs(t)
	ff := &fakeFactory{}
	b := newTestBuilder(t, ff, sourceDir, outputDir)

	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(report.Results) != 0 {
		t.Errorf("Results = %d, want 0", len(report.Results))
	}

	doc, data := readPage(t, report.OutputPath)
	if n := doc.Find(".card").Length(); n != 0 {
		t.Errorf("found %d cards, want 0", n)
	}
	if !bytes.Contains(data, []byte(`<div class="row"></div>`)) {
		t.Error("page should contain an empty row container")
	}
	if ff.count() != 0 {
		t.Errorf("created %d capturers for zero sources, want 0", ff.count())
	}
}

func TestBuild_IgnoresNonYAMLAndHiddenFiles(t *testing.T) {
	t.Parallel()

	sourceDir, outputDir := buildDirs(t)
	writeSource(t, sourceDir, "a.yml", projectYAML("alpha", "https://alpha.example.com"))
	writeSource(t, sourceDir, "README.md", "# not a project")
	writeSource(t, sourceDir, ".hidden.yaml", projectYAML("hidden", "https://hidden.example.com"))

	b := newTestBuilder(t, &fakeFactory{}, sourceDir, outputDir)
	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].Source.Name != "a.yml" {
		t.Errorf("Results = %+v, want only a.yml", report.Results)
	}
}

// ---------------------------------------------------------------------------
// Failure policy - failed projects are omitted, the page is still written
// ---------------------------------------------------------------------------

func TestBuild_OmitsFailedProjects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(t *testing.T, dir string, ff *fakeFactory)
		failed  string
		wantErr error
	}{
		{
			name: "malformed yaml",
			setup: func(t *testing.T, dir string, ff *fakeFactory) {
				writeSource(t, dir, "c.yaml", "title: [unclosed\n")
			},
			failed:  "c.yaml",
			wantErr: ErrParseSource,
		},
		{
			name: "missing field",
			setup: func(t *testing.T, dir string, ff *fakeFactory) {
				writeSource(t, dir, "c.yaml", "title: gamma\ndescription: no links\n")
			},
			failed:  "c.yaml",
			wantErr: ErrMissingField,
		},
		{
			name: "script url",
			setup: func(t *testing.T, dir string, ff *fakeFactory) {
				writeSource(t, dir, "c.yaml", projectYAML("gamma", "javascript:alert(1)"))
			},
			failed:  "c.yaml",
			wantErr: ErrInvalidURL,
		},
		{
			name: "two documents",
			setup: func(t *testing.T, dir string, ff *fakeFactory) {
				writeSource(t, dir, "c.yaml", projectYAML("gamma", "https://gamma.example.com")+"---\n"+projectYAML("delta", "https://delta.example.com"))
			},
			failed:  "c.yaml",
			wantErr: ErrMultiDocument,
		},
		{
			name: "empty file",
			setup: func(t *testing.T, dir string, ff *fakeFactory) {
				writeSource(t, dir, "c.yaml", "")
			},
			failed:  "c.yaml",
			wantErr: ErrNoDocument,
		},
		{
			name: "capture failure",
			setup: func(t *testing.T, dir string, ff *fakeFactory) {
				writeSource(t, dir, "c.yaml", projectYAML("gamma", "https://down.example.com"))
				ff.failFor = map[string]error{"https://down.example.com": errFakeCapture}
			},
			failed:  "c.yaml",
			wantErr: ErrPageLoad,
		},
		{
			name: "duplicate base name",
			setup: func(t *testing.T, dir string, ff *fakeFactory) {
				writeSource(t, dir, "a.yml", projectYAML("again", "https://again.example.com"))
			},
			failed:  "a.yml",
			wantErr: ErrDuplicateSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sourceDir, outputDir := buildDirs(t)
			writeSource(t, sourceDir, "a.yaml", projectYAML("alpha", "https://alpha.example.com"))
			writeSource(t, sourceDir, "b.yaml", projectYAML("beta", "https://beta.example.com"))

			ff := &fakeFactory{}
			tt.setup(t, sourceDir, ff)
			b := newTestBuilder(t, ff, sourceDir, outputDir)

			report, err := b.Build(context.Background())
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}

			failed := report.Failed()
			if len(failed) != 1 {
				t.Fatalf("Failed() = %d, want 1: %+v", len(failed), failed)
			}
			if failed[0].Source.Name != tt.failed {
				t.Errorf("failed source = %q, want %q", failed[0].Source.Name, tt.failed)
			}
			if !errors.Is(failed[0].Err, tt.wantErr) {
				t.Errorf("failure error = %v, want %v", failed[0].Err, tt.wantErr)
			}

			doc, _ := readPage(t, report.OutputPath)
			if n := doc.Find(".card").Length(); n != 2 {
				t.Errorf("found %d cards, want 2", n)
			}
		})
	}
}

func TestBuild_MalformedSourceDoesNotClaimBaseName(t *testing.T) {
	t.Parallel()

	sourceDir, outputDir := buildDirs(t)
	writeSource(t, sourceDir, "a.yaml", "title: [unclosed\n")
	writeSource(t, sourceDir, "a.yml", projectYAML("alpha", "https://alpha.example.com"))

	b := newTestBuilder(t, &fakeFactory{}, sourceDir, outputDir)
	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	failed := report.Failed()
	if len(failed) != 1 || failed[0].Source.Name != "a.yaml" {
		t.Fatalf("Failed() = %+v, want only a.yaml", failed)
	}
	if !errors.Is(failed[0].Err, ErrParseSource) {
		t.Errorf("failure error = %v, want ErrParseSource", failed[0].Err)
	}
	if errors.Is(failed[0].Err, ErrDuplicateSource) {
		t.Errorf("failure error = %v, should not be ErrDuplicateSource", failed[0].Err)
	}

	doc, _ := readPage(t, report.OutputPath)
	if n := doc.Find(".card").Length(); n != 1 {
		t.Errorf("found %d cards, want 1", n)
	}
}

func TestBuild_RecoversPanickingCapture(t *testing.T) {
	t.Parallel()

	sourceDir, outputDir := buildDirs(t)
	writeSource(t, sourceDir, "a.yaml", projectYAML("alpha", "https://alpha.example.com"))
	writeSource(t, sourceDir, "b.yaml", projectYAML("beta", "https://boom.example.com"))

	ff := &fakeFactory{panicOn: "https://boom.example.com"}
	b := newTestBuilder(t, ff, sourceDir, outputDir, WithWorkers(1))

	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	failed := report.Failed()
	if len(failed) != 1 || !strings.Contains(failed[0].Err.Error(), "internal error") {
		t.Fatalf("Failed() = %+v, want one internal error", failed)
	}

	// The capturer went back to the pool; the next build can still use it.
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("second Build() error = %v", err)
	}
	if ff.count() != 1 {
		t.Errorf("created %d capturers, want 1", ff.count())
	}
}

func TestBuild_DiscoveryFailure(t *testing.T) {
	t.Parallel()

	_, outputDir := buildDirs(t)
	b := newTestBuilder(t, &fakeFactory{}, filepath.Join(t.TempDir(), "missing"), outputDir)

	report, err := b.Build(context.Background())
	if !errors.Is(err, ErrDiscovery) {
		t.Fatalf("Build() error = %v, want ErrDiscovery", err)
	}
	if report != nil {
		t.Errorf("report = %+v, want nil", report)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "index.html")); !os.IsNotExist(err) {
		t.Error("page should not be written when discovery fails")
	}
}

func TestBuild_MissingOutputDirWhenNothingCaptured(t *testing.T) {
	t.Parallel()

	sourceDir, _ := buildDirs(t)
	outputDir := filepath.Join(t.TempDir(), "absent")

	b := newTestBuilder(t, &fakeFactory{}, sourceDir, outputDir)
	report, err := b.Build(context.Background())
	if !errors.Is(err, ErrOutputDir) {
		t.Fatalf("Build() error = %v, want ErrOutputDir", err)
	}
	if report == nil {
		t.Fatal("report should describe the settled projects")
	}
}

func TestBuild_Cancelled(t *testing.T) {
	t.Parallel()

	sourceDir, outputDir := buildDirs(t)
	for _, name := range []string{"a", "b", "c", "d"} {
		writeSource(t, sourceDir, name+".yaml", projectYAML(name, "https://"+name+".example.com"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := newTestBuilder(t, &fakeFactory{}, sourceDir, outputDir)
	report, err := b.Build(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Build() error = %v, want context.Canceled", err)
	}
	if report == nil || len(report.Succeeded()) != 0 {
		t.Fatalf("report = %+v, want every project failed", report)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "index.html")); !os.IsNotExist(err) {
		t.Error("page should not be written after cancellation")
	}
}

// ---------------------------------------------------------------------------
// Determinism and concurrency
// ---------------------------------------------------------------------------

func TestBuild_Idempotent(t *testing.T) {
	t.Parallel()

	sourceDir, outputDir := buildDirs(t)
	for _, name := range []string{"zeta", "alpha", "mu", "beta", "omega"} {
		writeSource(t, sourceDir, name+".yaml", projectYAML(name, "https://"+name+".example.com"))
	}

	// Random delays would reorder completion; the page must not care.
	ff := &fakeFactory{delay: 5 * time.Millisecond}
	b := newTestBuilder(t, ff, sourceDir, outputDir, WithWorkers(4), WithUpdated("auto"))

	first, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("first Build() error = %v", err)
	}
	_, firstPage := readPage(t, first.OutputPath)

	second, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("second Build() error = %v", err)
	}
	doc, secondPage := readPage(t, second.OutputPath)

	if !bytes.Equal(firstPage, secondPage) {
		t.Error("two builds over the same sources produced different pages")
	}
	if first.BuildID == second.BuildID {
		t.Error("each build should get its own ID")
	}

	var titles []string
	doc.Find(".card-title").Each(func(_ int, s *goquery.Selection) {
		titles = append(titles, s.Text())
	})
	want := "alpha,beta,mu,omega,zeta"
	if got := strings.Join(titles, ","); got != want {
		t.Errorf("card order = %s, want %s", got, want)
	}
	if !strings.Contains(doc.Find("footer").Text(), "2025-03-07") {
		t.Errorf("footer = %q, want the fixed clock date", doc.Find("footer").Text())
	}
}

func TestBuild_BoundedConcurrency(t *testing.T) {
	t.Parallel()

	const workers = 3

	sourceDir, outputDir := buildDirs(t)
	for i := 0; i < 12; i++ {
		name := string(rune('a' + i))
		writeSource(t, sourceDir, name+".yaml", projectYAML(name, "https://"+name+".example.com"))
	}

	ff := &fakeFactory{delay: 20 * time.Millisecond}
	b := newTestBuilder(t, ff, sourceDir, outputDir, WithWorkers(workers))

	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := len(report.Succeeded()); got != 12 {
		t.Fatalf("Succeeded() = %d, want 12", got)
	}
	if peak := ff.tracker.peak.Load(); peak > workers {
		t.Errorf("peak concurrent captures = %d, want <= %d", peak, workers)
	}
	if got := ff.count(); got > workers {
		t.Errorf("created %d capturers, want <= %d", got, workers)
	}
	if got := ff.tracker.total.Load(); got != 12 {
		t.Errorf("total captures = %d, want 12", got)
	}
}

// ---------------------------------------------------------------------------
// Observability
// ---------------------------------------------------------------------------

func TestBuild_LogsFailuresWithBuildID(t *testing.T) {
	t.Parallel()

	sourceDir, outputDir := buildDirs(t)
	writeSource(t, sourceDir, "a.yaml", projectYAML("alpha", "https://alpha.example.com"))
	writeSource(t, sourceDir, "b.yaml", "not: [valid\n")

	core, logs := observer.New(zapcore.DebugLevel)
	b := newTestBuilder(t, &fakeFactory{}, sourceDir, outputDir, WithLogger(zap.New(core)))

	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	failures := logs.FilterMessage("project failed").All()
	if len(failures) != 1 {
		t.Fatalf("logged %d failures, want 1", len(failures))
	}
	fields := failures[0].ContextMap()
	if fields["build_id"] != report.BuildID.String() {
		t.Errorf("build_id = %v, want %s", fields["build_id"], report.BuildID)
	}
	if fields["source"] != filepath.Join(sourceDir, "b.yaml") {
		t.Errorf("source = %v", fields["source"])
	}

	if logs.FilterMessage("project captured").Len() != 1 {
		t.Error("expected one debug entry for the captured project")
	}
	if logs.FilterMessage("site written").Len() != 1 {
		t.Error("expected a site written entry")
	}
}

func TestBuild_RecordsMetrics(t *testing.T) {
	t.Parallel()

	sourceDir, outputDir := buildDirs(t)
	writeSource(t, sourceDir, "a.yaml", projectYAML("alpha", "https://alpha.example.com"))
	writeSource(t, sourceDir, "b.yaml", projectYAML("beta", "https://beta.example.com"))
	writeSource(t, sourceDir, "c.yaml", "title: only\n")

	collector := metrics.New()
	b := newTestBuilder(t, &fakeFactory{}, sourceDir, outputDir, WithMetrics(collector))

	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	families, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "portfolios_projects_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			counts[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
		}
	}
	if counts[metrics.StatusSuccess] != 2 || counts[metrics.StatusFailed] != 1 {
		t.Errorf("project counts = %v, want 2 success and 1 failed", counts)
	}
}

// ---------------------------------------------------------------------------
// NewBuilder validation
// ---------------------------------------------------------------------------

func TestNewBuilder_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{"unknown engine", []Option{WithEngine("netscape")}, ErrUnknownEngine},
		{"bad stamp", []Option{WithUpdated("auto:")}, dateutil.ErrInvalidDateFormat},
		{"absolute images dir", []Option{WithImagesDir("/var/images")}, ErrOutputDir},
		{"bad format", []Option{WithCaptureOptions(CaptureOptions{Format: "gif"})}, ErrScreenshot},
		{"bad repo url", []Option{WithRenderOptions(RenderOptions{RepoURL: "ftp://example.com"})}, ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, err := NewBuilder(tt.opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewBuilder() error = %v, want %v", err, tt.wantErr)
			}
			if b != nil {
				_ = b.Close()
			}
		})
	}
}

func TestNewBuilder_SharedPoolIsNotClosed(t *testing.T) {
	t.Parallel()

	ff := &fakeFactory{}
	pool := NewCapturerPool(2, ff.New)
	defer pool.Close()

	b, err := NewBuilder(WithCapturerPool(pool))
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	if b.PoolSize() != 2 {
		t.Errorf("PoolSize() = %d, want 2", b.PoolSize())
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	c, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("shared pool should stay open, Acquire() error = %v", err)
	}
	pool.Release(c)
}

func TestWithWorkers_PanicsOnNegative(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("WithWorkers(-1) should panic")
		}
	}()
	WithWorkers(-1)
}
