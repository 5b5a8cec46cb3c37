// Package config loads and validates build configuration via Viper.
//
// Values are layered, lowest priority first: built-in defaults, a YAML config
// file, PORTFOLIOS_* environment variables, then command-line flags bound by
// the CLI.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrConfigInvalid  = errors.New("invalid config")
	ErrFieldTooLong   = errors.New("field exceeds maximum length")
)

// EnvPrefix prefixes environment overrides, e.g. PORTFOLIOS_SOURCE_DIR.
const EnvPrefix = "PORTFOLIOS"

// configName is the file name (without extension) searched when no path is given.
const configName = "portfolios"

// Field length limits.
const (
	MaxTitleLength = 100
	MaxURLLength   = 2048
	MaxPathLength  = 4096
	MaxStampLength = 60
)

// Screenshot limits.
const (
	MinViewport   = 100
	MaxViewport   = 7680
	MaxWorkers    = 64
	MinQuality    = 1
	MaxQuality    = 100
	MinTimeout    = time.Second
	DefaultEngine = "rod"
)

// Config holds all configuration for a site build.
type Config struct {
	Source     SourceConfig     `mapstructure:"source"`
	Output     OutputConfig     `mapstructure:"output"`
	Screenshot ScreenshotConfig `mapstructure:"screenshot"`
	Site       SiteConfig       `mapstructure:"site"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// SourceConfig locates the project descriptions.
type SourceConfig struct {
	Dir string `mapstructure:"dir"`
}

// OutputConfig locates the generated site.
type OutputConfig struct {
	Dir       string `mapstructure:"dir"`
	File      string `mapstructure:"file"`
	ImagesDir string `mapstructure:"imagesDir"`
}

// ScreenshotConfig controls the headless browser.
type ScreenshotConfig struct {
	Engine     string        `mapstructure:"engine"` // "rod" or "chromedp"
	Format     string        `mapstructure:"format"` // "jpeg" or "png"
	Quality    int           `mapstructure:"quality"`
	Width      int           `mapstructure:"width"`
	Height     int           `mapstructure:"height"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Idle       time.Duration `mapstructure:"idle"` // quiet network window after load
	Workers    int           `mapstructure:"workers"`
	BrowserBin string        `mapstructure:"browserBin"`
	NoSandbox  bool          `mapstructure:"noSandbox"`
}

// SiteConfig controls the page chrome.
type SiteConfig struct {
	Title   string `mapstructure:"title"`
	HomeURL string `mapstructure:"homeURL"`
	RepoURL string `mapstructure:"repoURL"`
	Updated string `mapstructure:"updated"` // "", literal, "auto", "auto:FORMAT"
	Assets  string `mapstructure:"assets"`  // custom asset directory
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	File string `mapstructure:"file"`
}

// SetDefaults registers every key with its default so environment variables
// are honored by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source.dir", "portfolios")

	v.SetDefault("output.dir", "dist")
	v.SetDefault("output.file", "index.html")
	v.SetDefault("output.imagesDir", "images")

	v.SetDefault("screenshot.engine", DefaultEngine)
	v.SetDefault("screenshot.format", "jpeg")
	v.SetDefault("screenshot.quality", 90)
	v.SetDefault("screenshot.width", 800)
	v.SetDefault("screenshot.height", 600)
	v.SetDefault("screenshot.timeout", 30*time.Second)
	v.SetDefault("screenshot.idle", 500*time.Millisecond)
	v.SetDefault("screenshot.workers", 0)
	v.SetDefault("screenshot.browserBin", "")
	v.SetDefault("screenshot.noSandbox", false)

	v.SetDefault("site.title", "Portfolios")
	v.SetDefault("site.homeURL", "/portfolios")
	v.SetDefault("site.repoURL", "")
	v.SetDefault("site.updated", "")
	v.SetDefault("site.assets", "")

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.development", false)

	v.SetDefault("metrics.file", "")
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load builds a Config on v. An explicit path must exist; otherwise
// portfolios.yaml is looked up in SearchPaths and its absence is not an error.
// Flags bound to v before Load take precedence over everything else.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
		}
	} else {
		v.SetConfigName(configName)
		for _, dir := range SearchPaths() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SearchPaths lists the directories searched for portfolios.yaml:
// the working directory, then the user config directory.
func SearchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "go-portfolios"))
	}
	return paths
}

// Validate checks enum values, ranges and field lengths.
func (c *Config) Validate() error {
	if c.Source.Dir == "" {
		return fmt.Errorf("%w: source.dir is required", ErrConfigInvalid)
	}
	if c.Output.Dir == "" || c.Output.File == "" || c.Output.ImagesDir == "" {
		return fmt.Errorf("%w: output.dir, output.file and output.imagesDir are required", ErrConfigInvalid)
	}
	if strings.ContainsAny(c.Output.File, `/\`) {
		return fmt.Errorf("%w: output.file must be a file name, got %q", ErrConfigInvalid, c.Output.File)
	}
	if filepath.IsAbs(c.Output.ImagesDir) || strings.Contains(c.Output.ImagesDir, "..") {
		return fmt.Errorf("%w: output.imagesDir must be relative to output.dir, got %q", ErrConfigInvalid, c.Output.ImagesDir)
	}
	for name, value := range map[string]string{
		"source.dir":            c.Source.Dir,
		"output.dir":            c.Output.Dir,
		"screenshot.browserBin": c.Screenshot.BrowserBin,
		"site.assets":           c.Site.Assets,
		"metrics.file":          c.Metrics.File,
	} {
		if err := validateFieldLength(name, value, MaxPathLength); err != nil {
			return err
		}
	}

	if err := c.Screenshot.validate(); err != nil {
		return err
	}
	if err := c.Site.validate(); err != nil {
		return err
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level must be debug, info, warn or error, got %q", ErrConfigInvalid, c.Log.Level)
	}
	return nil
}

func (s *ScreenshotConfig) validate() error {
	switch s.Engine {
	case "rod", "chromedp":
	default:
		return fmt.Errorf("%w: screenshot.engine must be rod or chromedp, got %q", ErrConfigInvalid, s.Engine)
	}
	switch s.Format {
	case "jpeg", "png":
	default:
		return fmt.Errorf("%w: screenshot.format must be jpeg or png, got %q", ErrConfigInvalid, s.Format)
	}
	if s.Quality < MinQuality || s.Quality > MaxQuality {
		return fmt.Errorf("%w: screenshot.quality must be between %d and %d, got %d", ErrConfigInvalid, MinQuality, MaxQuality, s.Quality)
	}
	if s.Width < MinViewport || s.Width > MaxViewport || s.Height < MinViewport || s.Height > MaxViewport {
		return fmt.Errorf("%w: screenshot viewport must be between %d and %d pixels, got %dx%d",
			ErrConfigInvalid, MinViewport, MaxViewport, s.Width, s.Height)
	}
	if s.Timeout < MinTimeout {
		return fmt.Errorf("%w: screenshot.timeout must be at least %s, got %s", ErrConfigInvalid, MinTimeout, s.Timeout)
	}
	if s.Idle < 0 || s.Idle >= s.Timeout {
		return fmt.Errorf("%w: screenshot.idle must be between 0 and screenshot.timeout, got %s", ErrConfigInvalid, s.Idle)
	}
	if s.Workers < 0 || s.Workers > MaxWorkers {
		return fmt.Errorf("%w: screenshot.workers must be between 0 (auto) and %d, got %d", ErrConfigInvalid, MaxWorkers, s.Workers)
	}
	return nil
}

func (s *SiteConfig) validate() error {
	if s.Title == "" {
		return fmt.Errorf("%w: site.title is required", ErrConfigInvalid)
	}
	if err := validateFieldLength("site.title", s.Title, MaxTitleLength); err != nil {
		return err
	}
	if err := validateFieldLength("site.homeURL", s.HomeURL, MaxURLLength); err != nil {
		return err
	}
	if err := validateFieldLength("site.repoURL", s.RepoURL, MaxURLLength); err != nil {
		return err
	}
	if err := validateFieldLength("site.updated", s.Updated, MaxStampLength); err != nil {
		return err
	}
	if s.RepoURL != "" {
		u, err := url.Parse(s.RepoURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: site.repoURL must be an absolute http(s) URL, got %q", ErrConfigInvalid, s.RepoURL)
		}
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}
