package portfolios

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/alnah/go-portfolios/internal/process"
)

// chromedpCapturer implements Capturer using chromedp and raw CDP commands.
// Unlike go-rod it never downloads a browser: Chrome must be installed or
// named by BrowserBin / ROD_BROWSER_BIN.
type chromedpCapturer struct {
	opts          CaptureOptions
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

func newChromedpCapturer(opts CaptureOptions) *chromedpCapturer {
	return &chromedpCapturer{opts: opts}
}

// ensureBrowser lazily starts the allocator and the browser.
func (c *chromedpCapturer) ensureBrowser() error {
	if c.browserCtx != nil {
		return nil
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.WindowSize(c.opts.Width, c.opts.Height))

	bin := resolveBrowserBin(c.opts)
	if bin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(bin))
	}
	if needsNoSandbox(c.opts, bin) {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	c.browserCtx = browserCtx
	c.cancelBrowser = cancelBrowser
	c.cancelAlloc = cancelAlloc
	return nil
}

// Capture opens url in a new tab, waits for the body to be ready plus the idle
// window, and writes the screenshot to outputPath.
func (c *chromedpCapturer) Capture(ctx context.Context, url, outputPath string) error {
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

	tabCtx, cancelTab := chromedp.NewContext(c.browserCtx)
	defer cancelTab()

	// Tab contexts hang off the browser, not the caller; forward cancellation.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	load := []chromedp.Action{
		chromedp.EmulateViewport(int64(c.opts.Width), int64(c.opts.Height)),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if c.opts.Idle > 0 {
		load = append(load, chromedp.Sleep(c.opts.Idle))
	}
	if err := chromedp.Run(tabCtx, load...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return pageError(ErrPageLoad, url, err)
	}

	var data []byte
	if err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		data, err = c.screenshotRequest().Do(ctx)
		return err
	})); err != nil {
		return pageError(ErrScreenshot, url, err)
	}

	return writeImage(outputPath, data)
}

// screenshotRequest builds the CDP capture parameters for the configured format.
func (c *chromedpCapturer) screenshotRequest() *page.CaptureScreenshotParams {
	if strings.EqualFold(c.opts.Format, FormatPNG) {
		return page.CaptureScreenshot().WithFormat(page.CaptureScreenshotFormatPng)
	}
	return page.CaptureScreenshot().
		WithFormat(page.CaptureScreenshotFormatJpeg).
		WithQuality(int64(c.opts.Quality))
}

// Close shuts the browser down, killing its process tree if it does not exit cleanly.
func (c *chromedpCapturer) Close() error {
	if c.browserCtx == nil {
		return nil
	}

	pid := 0
	if cc := chromedp.FromContext(c.browserCtx); cc != nil && cc.Browser != nil {
		if p := cc.Browser.Process(); p != nil {
			pid = p.Pid
		}
	}

	err := chromedp.Cancel(c.browserCtx)
	if err != nil {
		process.KillTree(pid)
	}
	c.cancelBrowser()
	c.cancelAlloc()

	c.browserCtx = nil
	return err
}
