// Package relocate moves images (and their paired caption files) into a
// quarantine directory with collision-safe renaming.
package relocate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"trainset/internal/inventory"
)

// Record describes the outcome of one relocation.
type Record struct {
	Source       string
	Dest         string
	CaptionMoved bool
}

// Relocate moves the image at d.Path into destDir, creating the directory
// if needed and renaming on collision (stem_1.ext, stem_2.ext, ...). A
// paired caption file is moved alongside under the same destination stem;
// that step is best-effort, never undoes the image move, and never
// overwrites a caption already at the destination. The boolean is false
// only when the image itself could not be moved.
func Relocate(d inventory.Descriptor, destDir string) (Record, bool) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return Record{}, false
	}

	destName := findUniqueName(d.Name, func(name string) bool {
		_, err := os.Stat(filepath.Join(destDir, name))
		return os.IsNotExist(err)
	})
	dest := filepath.Join(destDir, destName)

	if err := moveFile(d.Path, dest); err != nil {
		return Record{}, false
	}

	rec := Record{Source: d.Path, Dest: dest}

	captionSrc := inventory.CaptionPath(d.Path)
	if _, err := os.Stat(captionSrc); err == nil {
		captionDest := inventory.CaptionPath(dest)
		// The renamed image stem may collide with a caption quarantined
		// earlier; that caption belongs to another image and must stay.
		if _, err := os.Stat(captionDest); os.IsNotExist(err) {
			if err := moveFile(captionSrc, captionDest); err == nil {
				rec.CaptionMoved = true
			}
		}
	}

	return rec, true
}

// findUniqueName finds a free filename by appending a counter if needed.
// isAvailable should return true if the name can be used.
func findUniqueName(filename string, isAvailable func(string) bool) string {
	if isAvailable(filename) {
		return filename
	}

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, counter, ext)
		if isAvailable(candidate) {
			return candidate
		}
	}
}

// moveFile renames src to dest, falling back to copy+delete for
// cross-filesystem moves.
func moveFile(src, dest string) error {
	err := os.Rename(src, dest)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if err := copyFile(src, dest); err != nil {
			return err
		}
		return os.Remove(src)
	}

	return err
}

func copyFile(src, dest string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	destFile, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, srcFile); err != nil {
		os.Remove(dest) // Clean up on failure
		return err
	}

	return nil
}
