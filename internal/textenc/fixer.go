// Package textenc repairs text-file encodings: caption and config files are
// rewritten as UTF-8 when they were saved in a legacy single-byte encoding.
package textenc

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// textExtensions are the file types the fixer touches.
var textExtensions = map[string]bool{
	".txt":  true,
	".yml":  true,
	".yaml": true,
}

// legacyEncodings are tried in order when a file is not valid UTF-8.
var legacyEncodings = []struct {
	name    string
	decoder *encoding.Decoder
}{
	{"windows-1252", charmap.Windows1252.NewDecoder()},
	{"latin-1", charmap.ISO8859_1.NewDecoder()},
}

// FixDirs walks each directory and rewrites every .txt/.yml/.yaml file that
// is not valid UTF-8. Files already valid are left untouched. Returns the
// number of files converted.
func FixDirs(dirs []string, logger *slog.Logger) (int, error) {
	fixed := 0
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !textExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			converted, err := fixFile(path, logger)
			if err != nil {
				logger.Error("failed to fix file", "path", path, "error", err)
				return nil // per-file failures do not abort the walk
			}
			if converted {
				fixed++
			}
			return nil
		})
		if err != nil {
			return fixed, fmt.Errorf("failed to walk %s: %w", dir, err)
		}
	}
	return fixed, nil
}

// fixFile rewrites one file as UTF-8 if needed, reporting whether it was
// converted.
func fixFile(path string, logger *slog.Logger) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	if utf8.Valid(data) {
		return false, nil
	}

	for _, enc := range legacyEncodings {
		decoded, err := enc.decoder.Bytes(data)
		if err != nil || !utf8.Valid(decoded) {
			continue
		}
		if err := os.WriteFile(path, decoded, 0644); err != nil {
			return false, err
		}
		logger.Info("converted to UTF-8", "path", path, "from", enc.name)
		return true, nil
	}

	return false, fmt.Errorf("no usable encoding found for %s", path)
}
