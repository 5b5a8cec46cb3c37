// Package fileutil provides file and path utility functions.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
	ErrBaseEmpty              = errors.New("file base name cannot be empty")
	ErrBasePathTraversal      = errors.New("file base name contains path separator or null byte")
)

// yamlExtensions lists the extensions recognized as project sources.
var yamlExtensions = []string{".yaml", ".yml"}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers never observe a half-written file.
// The parent directory must already exist.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpPath := tmpFile.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, writeErr := tmpFile.Write(data); writeErr != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("writing temp file: %w", writeErr)
	}

	if closeErr := tmpFile.Close(); closeErr != nil {
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if chmodErr := os.Chmod(tmpPath, perm); chmodErr != nil {
		return fmt.Errorf("setting file mode: %w", chmodErr)
	}

	if renameErr := os.Rename(tmpPath, path); renameErr != nil {
		return fmt.Errorf("renaming temp file: %w", renameErr)
	}

	return nil
}

// ValidateExtension checks that the extension is safe for use in file names.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// SourceBase returns the part of a file name before its first dot.
//
// Examples:
//   - "a.yaml" -> "a"
//   - "my-app.v2.yml" -> "my-app"
//   - "dir/b.yaml" -> "b"
func SourceBase(name string) string {
	base, _, _ := strings.Cut(filepath.Base(name), ".")
	return base
}

// ImageName joins a base name and an image extension into a file name.
func ImageName(base, extension string) (string, error) {
	if base == "" {
		return "", ErrBaseEmpty
	}
	if strings.ContainsAny(base, "/\\\x00") || base == ".." {
		return "", ErrBasePathTraversal
	}
	if err := ValidateExtension(extension); err != nil {
		return "", err
	}
	return base + "." + extension, nil
}

// IsYAMLFile returns true if the name has a .yaml or .yml extension (any case).
func IsYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range yamlExtensions {
		if ext == want {
			return true
		}
	}
	return false
}

// IsHidden returns true for dot files such as ".DS_Store".
func IsHidden(name string) bool {
	return strings.HasPrefix(filepath.Base(name), ".")
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists returns true if the path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
