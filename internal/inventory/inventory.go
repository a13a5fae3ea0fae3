// Package inventory scans a directory for images and builds descriptors
// used by the duplicate detection pipeline.
package inventory

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Format identifies the decoded image format.
type Format string

const (
	FormatPNG     Format = "PNG"
	FormatJPEG    Format = "JPEG"
	FormatWEBP    Format = "WEBP"
	FormatGIF     Format = "GIF"
	FormatBMP     Format = "BMP"
	FormatTIFF    Format = "TIFF"
	FormatUnknown Format = "UNKNOWN"
)

// Descriptor holds everything the pipeline needs to know about one on-disk
// image. Descriptors are rebuilt on every scan and never mutated.
type Descriptor struct {
	Path        string
	Name        string
	SizeBytes   int64
	Width       int
	Height      int
	Format      Format
	HasMetadata bool
}

// Pixels returns the total pixel count.
func (d Descriptor) Pixels() int {
	return d.Width * d.Height
}

// supportedExtensions is the fixed set of recognized image extensions.
var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".webp": true,
}

// IsSupportedImage checks if a file has a supported image extension.
func IsSupportedImage(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Scan lists the images directly inside dir and returns one descriptor per
// file, sorted by path. Corrupt images yield zero dimensions and an UNKNOWN
// format instead of an error; only a failure to list the directory aborts.
// Scan is a pure read and can be re-invoked between pipeline layers.
func Scan(dir string) ([]Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	// One descriptor per exact path. Names differing only by case are
	// distinct files on case-sensitive filesystems and must all survive.
	seen := make(map[string]bool)
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsSupportedImage(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var descriptors []Descriptor
	for _, path := range paths {
		stat, err := os.Stat(path)
		if err != nil {
			// File vanished between listing and stat.
			continue
		}

		d := Descriptor{
			Path:      path,
			Name:      filepath.Base(path),
			SizeBytes: stat.Size(),
			Format:    FormatUnknown,
		}

		if cfg, format, err := decodeConfig(path); err == nil {
			d.Width = cfg.Width
			d.Height = cfg.Height
			d.Format = normalizeFormat(format)
		}
		d.HasMetadata = hasExif(path)

		descriptors = append(descriptors, d)
	}

	return descriptors, nil
}

func decodeConfig(path string) (image.Config, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer file.Close()
	return image.DecodeConfig(file)
}

func normalizeFormat(format string) Format {
	switch strings.ToLower(format) {
	case "png":
		return FormatPNG
	case "jpeg":
		return FormatJPEG
	case "webp":
		return FormatWEBP
	case "gif":
		return FormatGIF
	case "bmp":
		return FormatBMP
	case "tiff":
		return FormatTIFF
	default:
		return FormatUnknown
	}
}

// hasExif checks if an image file contains EXIF data.
func hasExif(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	_, err = exif.Decode(file)
	return err == nil
}

// CaptionPath returns the path of the caption file paired with an image:
// the same stem with a .txt extension.
func CaptionPath(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + ".txt"
}

// HasCaption reports whether a paired caption file exists beside the image.
func HasCaption(imagePath string) bool {
	info, err := os.Stat(CaptionPath(imagePath))
	return err == nil && !info.IsDir()
}
