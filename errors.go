package portfolios

import "errors"

// Sentinel errors for library operations.
var (
	// Browser errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrScreenshot     = errors.New("screenshot capture failed")
	ErrWriteImage     = errors.New("failed to write screenshot")
	ErrUnknownEngine  = errors.New("unknown screenshot engine")
	ErrPoolClosed     = errors.New("capturer pool is closed")

	// Source errors.
	ErrDiscovery       = errors.New("failed to list project sources")
	ErrReadSource      = errors.New("failed to read project source")
	ErrParseSource     = errors.New("failed to parse project source")
	ErrNoDocument      = errors.New("project source has no YAML document")
	ErrMultiDocument   = errors.New("project source has more than one YAML document")
	ErrDuplicateSource = errors.New("duplicate project source name")

	// Project validation errors.
	ErrMissingField = errors.New("missing required field")
	ErrInvalidURL   = errors.New("invalid URL")

	// Output errors.
	ErrRender    = errors.New("page rendering failed")
	ErrOutputDir = errors.New("output directory does not exist")
	ErrPersist   = errors.New("failed to write page")
)
