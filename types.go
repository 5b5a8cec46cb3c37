package portfolios

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Screenshot engine constants.
const (
	EngineRod      = "rod"
	EngineChromedp = "chromedp"
)

// Screenshot format constants.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// Viewport and quality defaults.
const (
	DefaultWidth   = 800
	DefaultHeight  = 600
	DefaultQuality = 90
	DefaultIdle    = 500 * time.Millisecond
)

// defaultTimeout bounds one navigation plus screenshot.
const defaultTimeout = 30 * time.Second

// Project is one portfolio entry, parsed from exactly one YAML source.
type Project struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	DemoURL     string `yaml:"demo_url"`
	RepoURL     string `yaml:"repo_url"`

	// Screenshot is the page-relative image path, set after a successful
	// capture. It is never read from YAML.
	Screenshot string `yaml:"-"`
}

// Source is one project description file found by discovery.
type Source struct {
	Path string // file path as discovered
	Name string // file name, e.g. "my-app.yaml"
	Base string // file name up to its first dot, e.g. "my-app"
}

// ProjectResult is the settled outcome of one source.
type ProjectResult struct {
	Source   Source
	Project  *Project // nil on failure
	Err      error
	Duration time.Duration
}

// OK reports whether the project made it onto the page.
func (r ProjectResult) OK() bool {
	return r.Err == nil && r.Project != nil
}

// Report describes one build.
type Report struct {
	BuildID    uuid.UUID
	Results    []ProjectResult // discovery order
	OutputPath string
	Duration   time.Duration
}

// Succeeded returns the results that were rendered.
func (r *Report) Succeeded() []ProjectResult {
	var out []ProjectResult
	for _, res := range r.Results {
		if res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Failed returns the results that were left out of the page.
func (r *Report) Failed() []ProjectResult {
	var out []ProjectResult
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Projects returns the rendered projects in discovery order.
func (r *Report) Projects() []Project {
	out := make([]Project, 0, len(r.Results))
	for _, res := range r.Results {
		if res.OK() {
			out = append(out, *res.Project)
		}
	}
	return out
}

// CaptureOptions configures a Capturer.
type CaptureOptions struct {
	Format     string        // "jpeg" (default) or "png"
	Quality    int           // 1-100, JPEG only
	Width      int           // viewport width in pixels
	Height     int           // viewport height in pixels
	Timeout    time.Duration // navigation plus screenshot
	Idle       time.Duration // quiet network window after load, 0 disables
	BrowserBin string        // empty uses ROD_BROWSER_BIN or a managed Chromium
	NoSandbox  bool
}

// DefaultCaptureOptions returns capture options with default values.
func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{
		Format:  FormatJPEG,
		Quality: DefaultQuality,
		Width:   DefaultWidth,
		Height:  DefaultHeight,
		Timeout: defaultTimeout,
		Idle:    DefaultIdle,
	}
}

// Extension returns the image file extension for the configured format.
func (o CaptureOptions) Extension() string {
	if strings.EqualFold(o.Format, FormatPNG) {
		return "png"
	}
	return "jpg"
}

// withDefaults fills zero values.
func (o CaptureOptions) withDefaults() CaptureOptions {
	d := DefaultCaptureOptions()
	if o.Format == "" {
		o.Format = d.Format
	}
	if o.Quality == 0 {
		o.Quality = d.Quality
	}
	if o.Width == 0 {
		o.Width = d.Width
	}
	if o.Height == 0 {
		o.Height = d.Height
	}
	if o.Timeout == 0 {
		o.Timeout = d.Timeout
	}
	return o
}

// Validate checks that capture options are usable.
// Zero values are accepted and replaced by defaults.
func (o CaptureOptions) Validate() error {
	o = o.withDefaults()
	switch strings.ToLower(o.Format) {
	case FormatJPEG, FormatPNG:
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrScreenshot, o.Format)
	}
	if o.Quality < 1 || o.Quality > 100 {
		return fmt.Errorf("%w: quality %d (must be between 1 and 100)", ErrScreenshot, o.Quality)
	}
	if o.Width < 0 || o.Height < 0 {
		return fmt.Errorf("%w: viewport %dx%d", ErrScreenshot, o.Width, o.Height)
	}
	if o.Timeout < 0 || o.Idle < 0 {
		return fmt.Errorf("%w: negative timeout", ErrScreenshot)
	}
	return nil
}
