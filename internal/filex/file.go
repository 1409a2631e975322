// Package filex contains small filesystem helpers.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir joins base with the given path segments, creates the resulting
// directory (and parents) if missing, and returns the absolute path.
func EnsureDir(base string, parts ...string) (string, error) {
	dir := filepath.Join(append([]string{base}, parts...)...)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
