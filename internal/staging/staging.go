package staging

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

// Collect walks the staging root and returns the absolute path of every
// regular file found under it, in traversal order. Directories themselves are
// not part of the manifest. The tree is freshly produced by the install step
// and trusted, so no symlink-cycle protection is applied.
func Collect(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve staging root: %w", err)
	}

	var manifest []string

	err = filepath.WalkDir(absRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.Type().IsRegular() {
			manifest = append(manifest, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk staging root %s: %w", absRoot, err)
	}

	return manifest, nil
}
