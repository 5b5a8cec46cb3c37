// Package yamlutil wraps YAML decoding to isolate the external dependency.
// Project files go through here so the parser can be swapped without touching callers.
package yamlutil

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
)

// MaxInputSize limits YAML input to prevent memory exhaustion (default 1MB).
var MaxInputSize = 1 << 20

var (
	ErrNilData       = errors.New("yamlutil: nil or empty data")
	ErrInputTooLarge = errors.New("yamlutil: input exceeds maximum size")
)

func validateInput(data []byte) error {
	if len(data) == 0 {
		return ErrNilData
	}
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	return nil
}

// DecodeAllStrict decodes every document of a YAML stream into a T, rejecting
// unknown fields. Null documents (an empty stream, a bare "---") are skipped,
// so the returned slice may be empty.
func DecodeAllStrict[T any](data []byte) ([]T, error) {
	if err := validateInput(data); err != nil {
		return nil, err
	}

	file, err := parser.ParseBytes(data, 0)
	if err != nil {
		return nil, fmt.Errorf("yamlutil: %w", err)
	}

	var docs []T
	for i, doc := range file.Docs {
		if isNullDocument(doc) {
			continue
		}
		var v T
		if err := yaml.NodeToValue(doc.Body, &v, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("yamlutil: document %d: %w", i+1, err)
		}
		docs = append(docs, v)
	}
	return docs, nil
}

// isNullDocument reports whether doc carries no value.
func isNullDocument(doc *ast.DocumentNode) bool {
	if doc == nil || doc.Body == nil {
		return true
	}
	_, isNull := doc.Body.(*ast.NullNode)
	return isNull
}
