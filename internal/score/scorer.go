// Package score ranks images within a duplicate group and recommends which
// one to keep.
package score

import (
	"path/filepath"
	"regexp"
	"strings"

	"trainset/internal/inventory"
)

// badNamePatterns are substrings that indicate a lower quality filename.
var badNamePatterns = []string{
	"copy",
	"duplicate",
	"temp",
	"thumb",
	"backup",
}

// numberedSuffix matches parenthesized numeric suffixes like "photo (2)".
var numberedSuffix = regexp.MustCompile(`\(\d+\)`)

// formatScores ranks formats, lossless and modern above lossy and legacy.
var formatScores = map[inventory.Format]float64{
	inventory.FormatPNG:  10,
	inventory.FormatTIFF: 9,
	inventory.FormatWEBP: 8,
	inventory.FormatJPEG: 5,
	inventory.FormatGIF:  3,
	inventory.FormatBMP:  2,
}

// losslessFormats feed the "lossless format" keeper reason.
var losslessFormats = map[inventory.Format]bool{
	inventory.FormatPNG:  true,
	inventory.FormatTIFF: true,
	inventory.FormatBMP:  true,
}

// Score computes the composite quality score for an image. Each signal
// contributes a bounded amount except caption presence, which deliberately
// dominates everything else: an image already captioned for training must
// almost never lose to an uncaptioned duplicate.
func Score(d inventory.Descriptor) float64 {
	score := 0.0

	if inventory.HasCaption(d.Path) {
		score += 1000
	}

	// Resolution, saturating at 30 points.
	megapixels := float64(d.Pixels()) / 1_000_000
	score += min(megapixels*3, 30)

	// Compression quality proxy: bytes per pixel, bucketed. Zero pixels
	// (undecodable image) contributes nothing.
	if pixels := d.Pixels(); pixels > 0 {
		bytesPerPixel := float64(d.SizeBytes) / float64(pixels)
		switch {
		case bytesPerPixel > 0.5:
			score += 20
		case bytesPerPixel > 0.3:
			score += 15
		case bytesPerPixel > 0.1:
			score += 10
		default:
			score += 5
		}
	}

	score += formatScores[d.Format]

	if cleanFilename(d.Name) {
		score += 10
	}

	if d.HasMetadata {
		score += 5
	}

	return score
}

// cleanFilename reports whether a filename avoids the low quality
// indicators (copy/temp/thumb markers, numbered suffixes).
func cleanFilename(name string) bool {
	stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	for _, bad := range badNamePatterns {
		if strings.Contains(stem, bad) {
			return false
		}
	}
	return !numberedSuffix.MatchString(stem)
}

// RecommendKeeper picks the highest scoring image from a group and explains
// the choice. An empty group returns (nil, "empty group") and must be
// treated as a no-op by the caller. On tied scores the first maximum wins,
// which keeps the recommendation deterministic for a given inventory order.
func RecommendKeeper(group []inventory.Descriptor) (*inventory.Descriptor, string) {
	if len(group) == 0 {
		return nil, "empty group"
	}
	if len(group) == 1 {
		return &group[0], "only file in group"
	}

	best := 0
	bestScore := Score(group[0])
	for i := 1; i < len(group); i++ {
		if s := Score(group[i]); s > bestScore {
			best = i
			bestScore = s
		}
	}
	keeper := group[best]

	var reasons []string
	if inventory.HasCaption(keeper.Path) {
		reasons = append(reasons, "has caption")
	}
	if keeper.SizeBytes == maxSize(group) {
		reasons = append(reasons, "largest file")
	}
	if keeper.Pixels() == maxPixels(group) {
		reasons = append(reasons, "highest resolution")
	}
	if losslessFormats[keeper.Format] {
		reasons = append(reasons, "lossless format")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "best quality score")
	}

	return &group[best], strings.Join(reasons, ", ")
}

func maxSize(group []inventory.Descriptor) int64 {
	m := group[0].SizeBytes
	for _, d := range group[1:] {
		if d.SizeBytes > m {
			m = d.SizeBytes
		}
	}
	return m
}

func maxPixels(group []inventory.Descriptor) int {
	m := group[0].Pixels()
	for _, d := range group[1:] {
		if d.Pixels() > m {
			m = d.Pixels()
		}
	}
	return m
}
