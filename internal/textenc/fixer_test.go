package textenc

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFixDirs_ConvertsLegacyEncoding(t *testing.T) {
	dir := t.TempDir()
	// "café" in windows-1252 / latin-1: é is a single 0xE9 byte.
	legacy := []byte{'c', 'a', 'f', 0xE9}
	path := filepath.Join(dir, "caption.txt")
	if err := os.WriteFile(path, legacy, 0644); err != nil {
		t.Fatal(err)
	}

	fixed, err := FixDirs([]string{dir}, discardLogger())
	if err != nil {
		t.Fatalf("FixDirs failed: %v", err)
	}
	if fixed != 1 {
		t.Errorf("fixed = %d, want 1", fixed)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "café" {
		t.Errorf("content = %q, want %q", data, "café")
	}
}

func TestFixDirs_ValidUTF8Untouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "caption.txt")
	original := "already valid: café ✓"
	if err := os.WriteFile(path, []byte(original), 0644); err != nil {
		t.Fatal(err)
	}

	fixed, err := FixDirs([]string{dir}, discardLogger())
	if err != nil {
		t.Fatalf("FixDirs failed: %v", err)
	}
	if fixed != 0 {
		t.Errorf("fixed = %d, want 0", fixed)
	}

	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Errorf("valid file was modified: %q", data)
	}
}

func TestFixDirs_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	legacy := []byte{0xE9}
	path := filepath.Join(dir, "image.jpg")
	if err := os.WriteFile(path, legacy, 0644); err != nil {
		t.Fatal(err)
	}

	fixed, err := FixDirs([]string{dir}, discardLogger())
	if err != nil {
		t.Fatalf("FixDirs failed: %v", err)
	}
	if fixed != 0 {
		t.Errorf("fixed = %d, want 0 for non-text extensions", fixed)
	}

	data, _ := os.ReadFile(path)
	if len(data) != 1 || data[0] != 0xE9 {
		t.Error("non-text file must not be rewritten")
	}
}

func TestFixDirs_WalksSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "config.yaml"), []byte{0xE9}, 0644); err != nil {
		t.Fatal(err)
	}

	fixed, err := FixDirs([]string{dir}, discardLogger())
	if err != nil {
		t.Fatalf("FixDirs failed: %v", err)
	}
	if fixed != 1 {
		t.Errorf("fixed = %d, want 1 from the nested directory", fixed)
	}
}

func TestFixDirs_MissingDirectory(t *testing.T) {
	if _, err := FixDirs([]string{filepath.Join(t.TempDir(), "nope")}, discardLogger()); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestFixDirs_MultipleDirs(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	for _, dir := range []string{dirA, dirB} {
		if err := os.WriteFile(filepath.Join(dir, "caption.txt"), []byte{0xE9}, 0644); err != nil {
			t.Fatal(err)
		}
	}

	fixed, err := FixDirs([]string{dirA, dirB}, discardLogger())
	if err != nil {
		t.Fatalf("FixDirs failed: %v", err)
	}
	if fixed != 2 {
		t.Errorf("fixed = %d, want 2 across both directories", fixed)
	}
}
