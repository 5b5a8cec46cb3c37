package portfolios

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/alnah/go-portfolios/internal/yamlutil"
)

// Field length limits for project text.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
	MaxURLLength         = 2048
)

// ParseProject decodes exactly one YAML document into a validated Project.
// Unknown keys are rejected so a typo such as "demo-url" is not silently dropped.
func ParseProject(data []byte) (*Project, error) {
	docs, err := yamlutil.DecodeAllStrict[Project](data)
	if err != nil {
		if errors.Is(err, yamlutil.ErrNilData) {
			return nil, ErrNoDocument
		}
		return nil, fmt.Errorf("%w: %v", ErrParseSource, err)
	}

	switch len(docs) {
	case 0:
		return nil, ErrNoDocument
	case 1:
	default:
		return nil, fmt.Errorf("%w: found %d", ErrMultiDocument, len(docs))
	}

	p := docs[0]
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ReadProject reads and parses the project described by src.
func ReadProject(src Source) (*Project, error) {
	data, err := os.ReadFile(src.Path) // #nosec G304 -- discovered path
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadSource, err)
	}
	return ParseProject(data)
}

// Validate checks that every field is present and both URLs are safe to link.
//
// This is a TRUST BOUNDARY: the renderer calls it again before emitting markup,
// so projects built by hand get the same checks as parsed ones.
func (p *Project) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: project", ErrMissingField)
	}

	fields := []struct {
		name, value string
		max         int
	}{
		{"title", p.Title, MaxTitleLength},
		{"description", p.Description, MaxDescriptionLength},
		{"demo_url", p.DemoURL, MaxURLLength},
		{"repo_url", p.RepoURL, MaxURLLength},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
		if len(f.value) > f.max {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrParseSource, f.name, f.max)
		}
	}

	if err := ValidateURL(p.DemoURL); err != nil {
		return fmt.Errorf("demo_url: %w", err)
	}
	if err := ValidateURL(p.RepoURL); err != nil {
		return fmt.Errorf("repo_url: %w", err)
	}
	return nil
}

// ValidateURL accepts only absolute http and https URLs with a host.
// Anything else (javascript:, data:, relative paths) returns ErrInvalidURL.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q (scheme must be http or https)", ErrInvalidURL, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q (missing host)", ErrInvalidURL, raw)
	}
	return nil
}
