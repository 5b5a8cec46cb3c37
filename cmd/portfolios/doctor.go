package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	portfolios "github.com/alnah/go-portfolios"
	"github.com/alnah/go-portfolios/internal/config"
	"github.com/alnah/go-portfolios/internal/hints"
)

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string      `json:"status"` // "ready", "warnings", "errors"
	Chrome   chromeInfo  `json:"chrome"`
	Env      envInfo     `json:"environment"`
	Project  projectInfo `json:"project"`
	System   systemInfo  `json:"system"`
	Warnings []string    `json:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
	Engine  string `json:"engine"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// projectInfo describes the directories a build would use.
type projectInfo struct {
	ConfigFile   string `json:"config_file,omitempty"`
	SourceDir    string `json:"source_dir"`
	Sources      int    `json:"sources"`
	OutputDir    string `json:"output_dir"`
	OutputExists bool   `json:"output_exists"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

func newDoctorCmd(env *Environment, common *commonFlags) *cobra.Command {
	flags := &doctorFlags{}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check Chrome and the project layout",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(*cobra.Command, []string) error {
			return runDoctorCmd(env, common.config, flags.json)
		},
	}
	addDoctorFlags(cmd.Flags(), flags)
	return cmd
}

// runDoctorCmd prints the diagnosis. Warnings still succeed; errors fail
// with a general error.
func runDoctorCmd(env *Environment, configPath string, jsonOutput bool) error {
	result := runDoctor(configPath)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return fmt.Errorf("doctor found %d problem(s)", len(result.Errors))
	}
	return nil
}

// runDoctor performs all diagnostic checks.
func runDoctor(configPath string) *doctorResult {
	result := &doctorResult{
		Status: statusReady,
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}

	cfg, err := config.Load(viper.New(), configPath)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Config: %v", err))
		cfg = config.DefaultConfig()
	}
	result.Project.ConfigFile = cfg.File

	checkChrome(result, cfg)
	checkEnvironment(result, cfg)
	checkProject(result, cfg)
	checkSystem(result)

	if len(result.Errors) > 0 {
		result.Status = statusErrors
	} else if len(result.Warnings) > 0 {
		result.Status = statusWarnings
	}

	return result
}

// checkChrome detects Chrome/Chromium installation.
func checkChrome(result *doctorResult, cfg *config.Config) {
	result.Chrome.Engine = cfg.Screenshot.Engine

	chromePath := cfg.Screenshot.BrowserBin
	if chromePath == "" {
		chromePath = result.Env.BrowserBin
	}
	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			result.Errors = append(result.Errors,
				"Chrome/Chromium not found. Install Chrome or set ROD_BROWSER_BIN")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	out, err := exec.Command(chromePath, "--version").Output()
	if err == nil {
		result.Chrome.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	result.Chrome.Sandbox = result.Env.NoSandbox != "1" && !cfg.Screenshot.NoSandbox
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult, cfg *config.Config) {
	result.Env.Container, result.Env.ContainerHint = isContainer()
	result.Env.CI = hints.InCI()

	if (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" && !cfg.Screenshot.NoSandbox {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but the sandbox is on. Set ROD_NO_SANDBOX=1 or screenshot.noSandbox")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	if os.Getenv("PORTFOLIOS_CONTAINER") == "1" {
		return true, "PORTFOLIOS_CONTAINER=1"
	}
	if hints.IsInContainer() {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkProject verifies the source and output directories a build would use.
func checkProject(result *doctorResult, cfg *config.Config) {
	result.Project.SourceDir = cfg.Source.Dir
	result.Project.OutputDir = cfg.Output.Dir

	sources, err := portfolios.DiscoverSources(cfg.Source.Dir)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Source directory %s is not readable", cfg.Source.Dir))
	} else {
		result.Project.Sources = len(sources)
		if len(sources) == 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("No *.yaml or *.yml files in %s", cfg.Source.Dir))
		}
	}

	if info, err := os.Stat(cfg.Output.Dir); err == nil && info.IsDir() {
		result.Project.OutputExists = true
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Output directory %s does not exist; create it before building", cfg.Output.Dir))
	}
}

// checkSystem verifies system requirements.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	testFile := filepath.Join(tmpDir, "portfolios-doctor-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
	} else {
		_ = os.Remove(testFile)
		result.System.TempWritable = true
	}
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	ok := color.GreenString("[OK]")
	warn := color.YellowString("[WARN]")
	fail := color.RedString("[ERROR]")

	fmt.Fprintln(w, "portfolios doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  %s Found at %s\n", ok, r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  %s Version: %s\n", ok, r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintf(w, "  %s Sandbox: enabled\n", ok)
		} else {
			fmt.Fprintf(w, "  %s Sandbox: disabled\n", ok)
		}
	} else {
		fmt.Fprintf(w, "  %s Not found\n", fail)
	}
	fmt.Fprintf(w, "  %s Engine: %s\n", ok, r.Chrome.Engine)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  %s Platform: %s/%s\n", ok, r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  %s Container: detected (%s)\n", ok, r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintf(w, "  %s CI: detected\n", ok)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Project")
	if r.Project.ConfigFile != "" {
		fmt.Fprintf(w, "  %s Config: %s\n", ok, r.Project.ConfigFile)
	}
	fmt.Fprintf(w, "  %s Sources: %d in %s\n", ok, r.Project.Sources, r.Project.SourceDir)
	if r.Project.OutputExists {
		fmt.Fprintf(w, "  %s Output: %s\n", ok, r.Project.OutputDir)
	} else {
		fmt.Fprintf(w, "  %s Output: %s missing\n", warn, r.Project.OutputDir)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintf(w, "  %s Temp directory: writable\n", ok)
	} else {
		fmt.Fprintf(w, "  %s Temp directory: not writable\n", fail)
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, msg := range r.Warnings {
			fmt.Fprintf(w, "  %s %s\n", warn, msg)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, msg := range r.Errors {
			fmt.Fprintf(w, "  %s %s\n", fail, msg)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to build")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
