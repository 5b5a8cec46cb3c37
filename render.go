package portfolios

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"regexp"

	"github.com/alnah/go-portfolios/internal/assets"
)

// Default page chrome.
const (
	DefaultSiteTitle = "Portfolios"
	DefaultHomeURL   = "/portfolios"
)

// interTagSpace matches whitespace between two tags.
var interTagSpace = regexp.MustCompile(`>\s+<`)

// RenderOptions configures the page chrome shared by every build.
type RenderOptions struct {
	Title        string // nav brand and <title>
	HomeURL      string // brand link, relative or absolute http(s)
	RepoURL      string // optional GitHub icon link
	TemplateName string // defaults to assets.DefaultTemplateName
	StyleName    string // defaults to assets.DefaultStyleName
}

// Page is the per-build data rendered by a Renderer.
type Page struct {
	Projects []Project // rendered in slice order
	Updated  string    // optional "Last updated" stamp
}

// pageData is what the template sees.
type pageData struct {
	Title    string
	HomeURL  string
	RepoURL  string
	Updated  string
	Style    template.CSS
	Projects []Project
}

// Renderer turns a list of projects into one HTML document.
// It is safe for concurrent use.
type Renderer struct {
	opts  RenderOptions
	tmpl  *template.Template
	style template.CSS
}

// NewRenderer loads the page template and stylesheet from loader and parses them.
func NewRenderer(loader assets.Loader, opts RenderOptions) (*Renderer, error) {
	if opts.Title == "" {
		opts.Title = DefaultSiteTitle
	}
	if opts.HomeURL == "" {
		opts.HomeURL = DefaultHomeURL
	}
	if opts.TemplateName == "" {
		opts.TemplateName = assets.DefaultTemplateName
	}
	if opts.StyleName == "" {
		opts.StyleName = assets.DefaultStyleName
	}

	if err := validateHomeURL(opts.HomeURL); err != nil {
		return nil, err
	}
	if opts.RepoURL != "" {
		if err := ValidateURL(opts.RepoURL); err != nil {
			return nil, fmt.Errorf("site repository: %w", err)
		}
	}

	source, err := loader.LoadTemplate(opts.TemplateName)
	if err != nil {
		return nil, fmt.Errorf("loading template %q: %w", opts.TemplateName, err)
	}
	css, err := loader.LoadStyle(opts.StyleName)
	if err != nil {
		return nil, fmt.Errorf("loading style %q: %w", opts.StyleName, err)
	}

	tmpl, err := template.New(opts.TemplateName).Option("missingkey=error").Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing template: %v", ErrRender, err)
	}

	return &Renderer{
		opts: opts,
		tmpl: tmpl,
		// Stylesheets come from the embedded assets or the operator's asset directory.
		style: template.CSS(css), // #nosec G203 -- trusted asset
	}, nil
}

// Render produces the HTML document for page. Every project is validated
// again so URLs that bypassed parsing still cannot inject markup or scripts.
// The output depends only on page and the renderer options.
func (r *Renderer) Render(page Page) ([]byte, error) {
	for i := range page.Projects {
		if err := page.Projects[i].Validate(); err != nil {
			return nil, fmt.Errorf("project %d: %w", i, err)
		}
	}

	projects := page.Projects
	if projects == nil {
		projects = []Project{}
	}

	data := pageData{
		Title:    r.opts.Title,
		HomeURL:  r.opts.HomeURL,
		RepoURL:  r.opts.RepoURL,
		Updated:  page.Updated,
		Style:    r.style,
		Projects: projects,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	return interTagSpace.ReplaceAll(buf.Bytes(), []byte("><")), nil
}

// validateHomeURL accepts a relative reference or an absolute http(s) URL.
func validateHomeURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: home %q: %v", ErrInvalidURL, raw, err)
	}
	if u.Scheme == "" && u.Host == "" {
		return nil
	}
	if err := ValidateURL(raw); err != nil {
		return fmt.Errorf("home: %w", err)
	}
	return nil
}
