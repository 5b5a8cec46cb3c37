package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	portfolios "github.com/alnah/go-portfolios"
)

// stubCapturer writes a placeholder image instead of driving Chrome.
type stubCapturer struct {
	fail map[string]error // demo URL -> error
}

func (s *stubCapturer) Capture(_ context.Context, url, outputPath string) error {
	if err, ok := s.fail[url]; ok {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o750); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("img"), 0o644)
}

func (s *stubCapturer) Close() error { return nil }

// testEnv returns an Environment writing to buffers with a stub capturer.
func testEnv(fail map[string]error) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := &Environment{
		Now:    func() time.Time { return time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC) },
		Stdout: &stdout,
		Stderr: &stderr,
		Stdin:  strings.NewReader(""),
		Capturers: func() (portfolios.Capturer, error) {
			return &stubCapturer{fail: fail}, nil
		},
	}
	return env, &stdout, &stderr
}

// buildLayout creates a source and an output directory plus a config file
// pointing at them, and returns the config path.
func buildLayout(t *testing.T, projects map[string]string) (cfgPath, outDir string) {
	t.Helper()

	root := t.TempDir()
	srcDir := filepath.Join(root, "projects")
	outDir = filepath.Join(root, "dist")
	for _, dir := range []string{srcDir, outDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	for name, content := range projects {
		if err := os.WriteFile(filepath.Join(srcDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	cfgPath = filepath.Join(root, "portfolios.yaml")
	cfg := fmt.Sprintf("source:\n  dir: %q\noutput:\n  dir: %q\nsite:\n  title: Test Site\n", srcDir, outDir)
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, outDir
}

func projectYAML(title, demo string) string {
	return fmt.Sprintf("title: %s\ndescription: About %s\ndemo_url: %s\nrepo_url: https://github.com/example/%s\n",
		title, title, demo, strings.ToLower(title))
}
