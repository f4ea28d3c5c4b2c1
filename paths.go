package kanshi

import (
	"os"
	"path/filepath"
)

// canonicalize resolves dir to an absolute, cleaned path and verifies it
// exists, per the watch(dir) contract in spec.md §4.1 ("fails if it does
// not exist").
func canonicalize(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)
	if _, err := os.Lstat(abs); err != nil {
		return "", err
	}
	return abs, nil
}
