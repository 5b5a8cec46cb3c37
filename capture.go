package portfolios

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-portfolios/internal/fileutil"
	"github.com/alnah/go-portfolios/internal/process"
)

// Capturer takes a screenshot of a URL and writes it to outputPath.
// Implementations are not safe for concurrent use; share them through a
// CapturerPool.
type Capturer interface {
	Capture(ctx context.Context, url, outputPath string) error
	Close() error
}

// Compile-time interface checks
var (
	_ Capturer = (*rodCapturer)(nil)
	_ Capturer = (*chromedpCapturer)(nil)
)

// File permissions for screenshots and their directory.
const (
	dirPermissions   = 0o750
	imagePermissions = 0o644
)

// NewCapturer returns a Capturer for the named engine. An empty engine
// selects go-rod. The browser is launched lazily on the first capture.
func NewCapturer(engine string, opts CaptureOptions) (Capturer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	switch strings.ToLower(engine) {
	case "", EngineRod:
		return newRodCapturer(opts), nil
	case EngineChromedp:
		return newChromedpCapturer(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q (must be %s or %s)", ErrUnknownEngine, engine, EngineRod, EngineChromedp)
	}
}

// resolveBrowserBin returns the configured binary, falling back to ROD_BROWSER_BIN.
func resolveBrowserBin(opts CaptureOptions) string {
	if opts.BrowserBin != "" {
		return opts.BrowserBin
	}
	return os.Getenv("ROD_BROWSER_BIN")
}

// needsNoSandbox reports whether Chrome must run without its sandbox:
// CI runners and containers with a pre-installed browser usually lack the
// kernel features it needs.
func needsNoSandbox(opts CaptureOptions, bin string) bool {
	return opts.NoSandbox ||
		os.Getenv("ROD_NO_SANDBOX") == "1" ||
		os.Getenv("CI") == "true" ||
		bin != ""
}

// effectiveTimeout shortens the configured timeout to the context deadline.
func effectiveTimeout(ctx context.Context, timeout time.Duration) (time.Duration, error) {
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, context.DeadlineExceeded
		}
		if remaining < timeout {
			return remaining, nil
		}
	}
	return timeout, nil
}

// pageError ties a browser failure to url and keeps err in the chain so
// callers can still match context.DeadlineExceeded.
func pageError(kind error, url string, err error) error {
	return fmt.Errorf("%w: %s: %w", kind, url, err)
}

// writeImage creates the screenshot directory if needed and writes data atomically.
func writeImage(outputPath string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: browser returned an empty image", ErrScreenshot)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), dirPermissions); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteImage, err)
	}
	if err := fileutil.WriteFileAtomic(outputPath, data, imagePermissions); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteImage, err)
	}
	return nil
}

// rodCapturer implements Capturer using go-rod.
// Rod automatically downloads Chromium on first run if not found.
type rodCapturer struct {
	opts     CaptureOptions
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// newRodCapturer creates a rodCapturer; the browser starts on first use.
func newRodCapturer(opts CaptureOptions) *rodCapturer {
	return &rodCapturer{opts: opts}
}

// ensureBrowser lazily launches and connects to the browser.
func (c *rodCapturer) ensureBrowser() error {
	if c.browser != nil {
		return nil
	}

	l := launcher.New().Headless(true)

	// Use pre-installed browser if specified (Docker/containerized environments)
	bin := resolveBrowserBin(c.opts)
	if bin != "" {
		l = l.Bin(bin)
	}
	if needsNoSandbox(c.opts, bin) {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		process.KillTree(l.PID())
		l.Kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	c.launcher = l
	c.browser = browser
	return nil
}

// Capture opens url in a fresh tab sized to the viewport, waits for the load
// event plus a quiet network window, and writes the screenshot to outputPath.
func (c *rodCapturer) Capture(ctx context.Context, url, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.ensureBrowser(); err != nil {
		return err
	}

	timeout, err := effectiveTimeout(ctx, c.opts.Timeout)
	if err != nil {
		return err
	}

	tab, err := c.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	// Closed without ctx so a cancelled build still releases the tab.
	defer func() { _ = tab.Close() }()

	page := tab.Context(ctx).Timeout(timeout)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             c.opts.Width,
		Height:            c.opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("%w: setting viewport: %v", ErrPageCreate, err)
	}

	if err := page.Navigate(url); err != nil {
		return pageError(ErrPageLoad, url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return pageError(ErrPageLoad, url, err)
	}
	if c.opts.Idle > 0 {
		page.WaitRequestIdle(c.opts.Idle, nil, nil, nil)()
	}

	// Check context after page load
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := page.Screenshot(false, c.screenshotRequest())
	if err != nil {
		return pageError(ErrScreenshot, url, err)
	}

	return writeImage(outputPath, data)
}

// screenshotRequest builds the CDP capture parameters for the configured format.
func (c *rodCapturer) screenshotRequest() *proto.PageCaptureScreenshot {
	if strings.EqualFold(c.opts.Format, FormatPNG) {
		return &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng}
	}
	return &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: intPtr(c.opts.Quality),
	}
}

// Close releases browser resources and kills the launched process tree.
func (c *rodCapturer) Close() error {
	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.browser = nil

	if c.launcher != nil {
		process.KillTree(c.launcher.PID())
		c.launcher.Kill()
		c.launcher.Cleanup()
		c.launcher = nil
	}
	return err
}

// intPtr returns a pointer to an int value.
func intPtr(v int) *int {
	return &v
}
