package main

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// loadChunkDir reads every regular file in dir, sorted by name, as one raw
// chunk binary. Chunk load order determines chunk index, so file naming
// (e.g. 000-foo.chunk, 001-bar.chunk) controls which chunk number a given
// file becomes.
func loadChunkDir(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading chunk directory %s", dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	raw := make([][]byte, len(names))
	for i, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, errors.Wrapf(err, "reading chunk file %s", name)
		}
		raw[i] = b
	}
	return raw, nil
}

// loadLinksFile reads a link table binary. A missing path is treated as
// "no links" rather than an error, since a single-chunk load set has none.
func loadLinksFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading links file %s", path)
	}
	return b, nil
}
