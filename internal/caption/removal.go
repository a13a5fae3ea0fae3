package caption

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"trainset/internal/config"
	"trainset/internal/inventory"
	"trainset/internal/relocate"
)

// RemovedDirName is the subdirectory filtered images are moved into.
const RemovedDirName = "removed"

// FilterOptions select which images to keep. Gender is "", "women", or
// "men". RequireSolo nil means no solo requirement; true demands a single
// subject, false demands a group shot.
type FilterOptions struct {
	Gender      string
	RequireSolo *bool
}

// Removal is one image moved by the filter, with the reasons why.
type Removal struct {
	Record    relocate.Record
	SizeBytes int64
	Reasons   []string
}

// FilterResult summarizes one filter run.
type FilterResult struct {
	Processed int
	Removed   int
	Moved     []Removal
	DestDir   string
}

// Filter analyzes every image in dir with the provider and relocates the
// ones that do not meet the requirements (with their captions) into
// removed/. Analysis failures keep the image in place.
func Filter(ctx context.Context, dir string, provider Provider, cfg config.Config, opts FilterOptions, logger *slog.Logger) (FilterResult, error) {
	images, err := inventory.Scan(dir)
	if err != nil {
		return FilterResult{}, fmt.Errorf("failed to scan image directory: %w", err)
	}

	removedDir := filepath.Join(dir, RemovedDirName)
	result := FilterResult{DestDir: removedDir}
	if len(images) == 0 {
		logger.Info("no images found to analyze", "dir", dir)
		return result, nil
	}

	logger.Info("analyzing images for removal",
		"images", len(images), "gender", opts.Gender, "require_solo", opts.RequireSolo)

	var mu sync.Mutex
	forEachThrottled(ctx, images, cfg.Workers, cfg.SubmissionRate, func(img inventory.Descriptor) {
		analysis, err := provider.Analyze(ctx, img.Path)
		if err != nil {
			logger.Error("removal analysis failed", "image", img.Name, "error", err)
			mu.Lock()
			result.Processed++
			mu.Unlock()
			return
		}

		remove, reasons := evaluateRemoval(analysis, opts, cfg.Thresholds)

		mu.Lock()
		defer mu.Unlock()
		result.Processed++

		if !remove {
			logger.Info("kept", "image", img.Name,
				"solo_p", analysis.SoloP, "woman_p", analysis.WomanP, "man_p", analysis.ManP)
			return
		}

		rec, ok := relocate.Relocate(img, removedDir)
		if !ok {
			logger.Error("failed to move filtered image", "image", img.Name)
			return
		}
		result.Removed++
		result.Moved = append(result.Moved, Removal{
			Record:    rec,
			SizeBytes: img.SizeBytes,
			Reasons:   reasons,
		})
		logger.Info("moved", "image", img.Name, "dest", rec.Dest, "reasons", reasons)
	})

	logger.Info("removal analysis complete",
		"processed", result.Processed, "removed", result.Removed, "dest", removedDir)
	return result, nil
}

// evaluateRemoval decides whether an image should be removed given its
// analysis and the configured thresholds.
func evaluateRemoval(a Analysis, opts FilterOptions, th config.Thresholds) (bool, []string) {
	var reasons []string
	remove := false

	if opts.Gender != "" {
		prob := a.ManP
		if opts.Gender == "women" {
			prob = a.WomanP
		}
		if prob < th.Gender {
			remove = true
			reasons = append(reasons, fmt.Sprintf(
				"expected %s probability >= %.2f, got %.2f", opts.Gender, th.Gender, prob))
		}
	}

	if opts.RequireSolo != nil {
		if *opts.RequireSolo {
			if a.SoloP < th.Solo {
				remove = true
				reasons = append(reasons, fmt.Sprintf(
					"expected solo probability >= %.2f, got %.2f", th.Solo, a.SoloP))
			}
		} else {
			groupP := 1 - a.SoloP
			groupThreshold := 1 - th.Solo
			if groupP < groupThreshold {
				remove = true
				reasons = append(reasons, fmt.Sprintf(
					"expected group probability >= %.2f, got %.2f", groupThreshold, groupP))
			}
		}
	}

	return remove, reasons
}
