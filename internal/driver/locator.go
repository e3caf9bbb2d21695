package driver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrFileNotFound is returned by Locate when no root holds the file.
var ErrFileNotFound = errors.New("file not found in any search path")

// Locator resolves file names against an ordered list of roots.
type Locator struct {
	paths []string
}

// NewLocator creates a locator over paths. The slice is copied.
func NewLocator(paths []string) *Locator {
	return &Locator{paths: append([]string(nil), paths...)}
}

// Paths returns a copy of the search roots.
func (l *Locator) Paths() []string {
	return append([]string(nil), l.paths...)
}

// Locate returns the first regular file named name under the roots, in order.
// Roots that do not exist are skipped.
func (l *Locator) Locate(name string) (string, error) {
	for _, root := range l.paths {
		candidate := filepath.Join(root, name)
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return "", ErrFileNotFound
}

// FindFiles walks root recursively and returns regular files whose name ends
// with suffix. A file named exactly suffix is ignored.
func FindFiles(root, suffix string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		if len(name) > len(suffix) && strings.HasSuffix(name, suffix) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
