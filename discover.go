package portfolios

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/alnah/go-portfolios/internal/fileutil"
)

// DiscoverSources lists the project sources in dir: regular *.yaml and *.yml
// files (any case), hidden files skipped, sorted by name. Subdirectories are
// not walked.
func DiscoverSources(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscovery, err)
	}

	sources := make([]Source, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if fileutil.IsHidden(name) || !fileutil.IsYAMLFile(name) {
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		sources = append(sources, Source{
			Path: filepath.Join(dir, name),
			Name: name,
			Base: fileutil.SourceBase(name),
		})
	}

	// os.ReadDir already sorts, but the order is part of the contract.
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Name < sources[j].Name
	})
	return sources, nil
}
