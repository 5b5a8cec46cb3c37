package main

import (
	"errors"
	"os"

	portfolios "github.com/alnah/go-portfolios"
	"github.com/alnah/go-portfolios/internal/assets"
	"github.com/alnah/go-portfolios/internal/config"
	"github.com/alnah/go-portfolios/internal/dateutil"
	"github.com/alnah/go-portfolios/internal/logging"
)

// Exit codes for the portfolios CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Page written, every project included
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // Source or output directory unusable
	ExitBrowser = 4 // Browser/Chrome errors
	ExitPartial = 5 // Page written, some projects omitted
)

// CLI-level sentinel errors.
var (
	ErrUsage        = errors.New("invalid usage")
	ErrPartialBuild = errors.New("some projects were omitted")
	ErrReadMarkdown = errors.New("failed to read markdown input")
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, ErrPartialBuild) {
		return ExitPartial
	}

	// Browser errors (exit 4)
	if isBrowserError(err) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, portfolios.ErrDiscovery) ||
		errors.Is(err, portfolios.ErrOutputDir) ||
		errors.Is(err, portfolios.ErrPersist) ||
		errors.Is(err, portfolios.ErrWriteImage) ||
		errors.Is(err, ErrReadMarkdown) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrConfigInvalid) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, logging.ErrInvalidLevel) ||
		errors.Is(err, dateutil.ErrInvalidDateFormat) ||
		errors.Is(err, portfolios.ErrUnknownEngine) ||
		errors.Is(err, portfolios.ErrInvalidURL) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrTemplateNotFound) ||
		errors.Is(err, assets.ErrInvalidBasePath) ||
		errors.Is(err, assets.ErrInvalidAssetName) {
		return ExitUsage
	}

	return ExitGeneral
}

// isBrowserError reports whether err comes from launching or driving Chrome.
func isBrowserError(err error) bool {
	return errors.Is(err, portfolios.ErrBrowserConnect) ||
		errors.Is(err, portfolios.ErrPageCreate) ||
		errors.Is(err, portfolios.ErrPageLoad) ||
		errors.Is(err, portfolios.ErrScreenshot)
}
