package filex

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureDir_CreatesNestedDirectory(t *testing.T) {
	base := t.TempDir()

	dir, err := EnsureDir(base, "uploads", "abc", "chunks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := filepath.Join(base, "uploads", "abc", "chunks")
	if dir != want {
		t.Fatalf("got %q, want %q", dir, want)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("%q is not a directory", dir)
	}
}

func TestEnsureDir_ExistingDirectoryIsFine(t *testing.T) {
	base := t.TempDir()

	if _, err := EnsureDir(base, "x"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := EnsureDir(base, "x"); err != nil {
		t.Fatalf("second call: %v", err)
	}
}
