package portfolios

import (
	"fmt"
	"path/filepath"

	"github.com/alnah/go-portfolios/internal/fileutil"
)

// Default output locations.
const (
	DefaultOutputDir  = "dist"
	DefaultOutputFile = "index.html"
	DefaultImagesDir  = "images"
)

// pagePermissions is the mode of the written HTML file.
const pagePermissions = 0o644

// Sink persists a rendered document.
type Sink interface {
	Persist(html []byte) error
}

var _ Sink = (*FileSink)(nil)

// FileSink writes the document to a fixed file, replacing any previous version.
type FileSink struct {
	dir  string
	name string
}

// NewFileSink creates a sink writing dir/name.
func NewFileSink(dir, name string) *FileSink {
	return &FileSink{dir: dir, name: name}
}

// Path returns the file the sink writes.
func (s *FileSink) Path() string {
	return filepath.Join(s.dir, s.name)
}

// Persist overwrites the output file with html. The output directory is not
// created here: a missing directory fails with ErrOutputDir.
func (s *FileSink) Persist(html []byte) error {
	if !fileutil.DirExists(s.dir) {
		return fmt.Errorf("%w: %s", ErrOutputDir, s.dir)
	}
	if err := fileutil.WriteFileAtomic(s.Path(), html, pagePermissions); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}
