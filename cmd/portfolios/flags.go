package main

import (
	"fmt"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// buildFlags holds flags for the build command. Each one overrides the
// config key it is bound to only when set on the command line.
type buildFlags struct {
	source      string
	output      string
	workers     int
	timeout     time.Duration
	engine      string
	format      string
	metricsFile string
	noSandbox   bool
}

// markdownFlags holds flags for the markdown command.
type markdownFlags struct {
	file  string
	stdin bool
}

// doctorFlags holds flags for the doctor command.
type doctorFlags struct {
	json bool
}

// buildFlagKeys maps build flag names to config keys.
var buildFlagKeys = map[string]string{
	"source":       "source.dir",
	"output":       "output.dir",
	"workers":      "screenshot.workers",
	"timeout":      "screenshot.timeout",
	"engine":       "screenshot.engine",
	"format":       "screenshot.format",
	"metrics-file": "metrics.file",
	"no-sandbox":   "screenshot.noSandbox",
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file path (default: portfolios.yaml)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging and per-project timing")
}

// addBuildFlags adds build flags to a FlagSet.
func addBuildFlags(fs *flag.FlagSet, f *buildFlags) {
	fs.StringVarP(&f.source, "source", "s", "", "directory of project YAML files (default: portfolios)")
	fs.StringVarP(&f.output, "output", "o", "", "output directory (default: dist)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel screenshots (0 = auto)")
	fs.DurationVarP(&f.timeout, "timeout", "t", 0, "per-page capture timeout (default: 30s)")
	fs.StringVar(&f.engine, "engine", "", "screenshot engine: rod, chromedp")
	fs.StringVar(&f.format, "format", "", "image format: jpeg, png")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the Chrome sandbox")
}

// addMarkdownFlags adds markdown flags to a FlagSet.
func addMarkdownFlags(fs *flag.FlagSet, f *markdownFlags) {
	fs.StringVarP(&f.file, "file", "f", "", "read markdown from a file")
	fs.BoolVar(&f.stdin, "stdin", false, "read markdown from standard input")
}

// addDoctorFlags adds doctor flags to a FlagSet.
func addDoctorFlags(fs *flag.FlagSet, f *doctorFlags) {
	fs.BoolVar(&f.json, "json", false, "output as JSON")
}

// bindBuildFlags binds build flags to their config keys on v.
func bindBuildFlags(v *viper.Viper, fs *flag.FlagSet) error {
	for name, key := range buildFlagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}
