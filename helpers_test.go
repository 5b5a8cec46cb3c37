package portfolios

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Fake capturer - records calls and writes a placeholder image
// ---------------------------------------------------------------------------

var errFakeCapture = errors.New("fake capture failure")

// fakeImage is written instead of a real screenshot.
var fakeImage = []byte("\xff\xd8\xff fake jpeg")

// captureTracker counts concurrent captures across every fake from one factory.
type captureTracker struct {
	current atomic.Int32
	peak    atomic.Int32
	total   atomic.Int32
}

func (t *captureTracker) enter() {
	n := t.current.Add(1)
	t.total.Add(1)
	for {
		peak := t.peak.Load()
		if n <= peak || t.peak.CompareAndSwap(peak, n) {
			return
		}
	}
}

func (t *captureTracker) leave() {
	t.current.Add(-1)
}

type fakeCapturer struct {
	tracker *captureTracker
	delay   time.Duration
	failFor map[string]error // demo URL -> error
	panicOn string           // demo URL that panics

	mu     sync.Mutex
	urls   []string
	closed bool
}

func (f *fakeCapturer) Capture(ctx context.Context, url, outputPath string) error {
	if f.tracker != nil {
		f.tracker.enter()
		defer f.tracker.leave()
	}

	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()

	if url == f.panicOn {
		panic("capturer exploded")
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err, ok := f.failFor[url]; ok {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	return writeImage(outputPath, fakeImage)
}

func (f *fakeCapturer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// fakeFactory builds fakes sharing one configuration and remembers them.
type fakeFactory struct {
	tracker captureTracker
	delay   time.Duration
	failFor map[string]error
	panicOn string

	mu      sync.Mutex
	created []*fakeCapturer
}

func (ff *fakeFactory) New() (Capturer, error) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	c := &fakeCapturer{
		tracker: &ff.tracker,
		delay:   ff.delay,
		failFor: ff.failFor,
		panicOn: ff.panicOn,
	}
	ff.created = append(ff.created, c)
	return c, nil
}

func (ff *fakeFactory) count() int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return len(ff.created)
}

// ---------------------------------------------------------------------------
// Source fixtures
// ---------------------------------------------------------------------------

// projectYAML returns a valid source document.
func projectYAML(title, demoURL string) string {
	return fmt.Sprintf(`title: %q
description: "A project called %s"
demo_url: %q
repo_url: "https://github.com/alnah/%s"
`, title, title, demoURL, title)
}

// writeSource writes content to dir/name.
func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write source %s: %v", name, err)
	}
	return path
}

// buildDirs creates an empty source directory and output directory.
func buildDirs(t *testing.T) (sourceDir, outputDir string) {
	t.Helper()
	root := t.TempDir()
	sourceDir = filepath.Join(root, "portfolios")
	outputDir = filepath.Join(root, "dist")
	for _, dir := range []string{sourceDir, outputDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	return sourceDir, outputDir
}

// fixedClock returns a clock frozen at a known instant.
func fixedClock() time.Time {
	return time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)
}
