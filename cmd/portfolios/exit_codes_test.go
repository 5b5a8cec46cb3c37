package main

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	portfolios "github.com/alnah/go-portfolios"
	"github.com/alnah/go-portfolios/internal/assets"
	"github.com/alnah/go-portfolios/internal/config"
	"github.com/alnah/go-portfolios/internal/dateutil"
	"github.com/alnah/go-portfolios/internal/logging"
)

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"unknown error", errors.New("boom"), ExitGeneral},
		{"render", portfolios.ErrRender, ExitGeneral},

		{"partial", fmt.Errorf("%w: 1 of 2 failed", ErrPartialBuild), ExitPartial},

		{"browser connect", portfolios.ErrBrowserConnect, ExitBrowser},
		{"page create", portfolios.ErrPageCreate, ExitBrowser},
		{"page load wrapped", fmt.Errorf("all failed: %w", portfolios.ErrPageLoad), ExitBrowser},
		{"screenshot", portfolios.ErrScreenshot, ExitBrowser},

		{"not exist", os.ErrNotExist, ExitIO},
		{"permission", os.ErrPermission, ExitIO},
		{"discovery", portfolios.ErrDiscovery, ExitIO},
		{"output dir", portfolios.ErrOutputDir, ExitIO},
		{"persist", portfolios.ErrPersist, ExitIO},
		{"write image", portfolios.ErrWriteImage, ExitIO},
		{"read markdown", ErrReadMarkdown, ExitIO},

		{"usage", ErrUsage, ExitUsage},
		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"config invalid", config.ErrConfigInvalid, ExitUsage},
		{"field too long", config.ErrFieldTooLong, ExitUsage},
		{"log level", logging.ErrInvalidLevel, ExitUsage},
		{"date format", dateutil.ErrInvalidDateFormat, ExitUsage},
		{"engine", portfolios.ErrUnknownEngine, ExitUsage},
		{"site url", portfolios.ErrInvalidURL, ExitUsage},
		{"style", assets.ErrStyleNotFound, ExitUsage},
		{"template", assets.ErrTemplateNotFound, ExitUsage},
		{"asset path", assets.ErrInvalidBasePath, ExitUsage},

		{"hinted keeps code", withHint(portfolios.ErrDiscovery, "\n  hint: x"), ExitIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, exitCodeFor(tt.err))
		})
	}
}
