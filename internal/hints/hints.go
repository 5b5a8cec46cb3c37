// Package hints provides actionable error hints for common build failures.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-portfolios/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// InCI reports whether a well-known CI environment variable is set.
func InCI() bool {
	for _, name := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// ForBrowserConnect returns hints for browser launch and connection errors.
func ForBrowserConnect() string {
	var hints []string

	if (InCI() || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 or screenshot.noSandbox for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use a custom Chrome")
	}
	hints = append(hints, "run `portfolios doctor` to check the browser setup")

	return formatHints(hints)
}

// ForTimeout returns a hint about slow demo pages.
func ForTimeout() string {
	return format("slow demo sites may need a longer --timeout")
}

// ForSourceDir returns hints for an unreadable project directory.
func ForSourceDir(dir string) string {
	return format("check that " + dir + " exists, or pass --source")
}

// ForOutputDirectory returns hints for output directory errors.
func ForOutputDirectory(dir string) string {
	return format("create " + dir + " first or pass --output; the page is not written into a missing directory")
}

// ForConfigNotFound suggests where a config file is looked up.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/portfolios.yaml"
	if len(searchedPaths) > 0 {
		hint += " or create one of: " + strings.Join(searchedPaths, ", ")
	}
	return format(hint)
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
