package caption

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"trainset/internal/config"
	"trainset/internal/inventory"
)

// Result summarizes one caption run.
type Result struct {
	Submitted int
	Written   int
	Skipped   int
	Rejected  int
	Failed    int
}

// Captioner generates captions for every image in a directory that does not
// already have one.
type Captioner struct {
	provider Provider
	cfg      config.Config
	logger   *slog.Logger
}

// NewCaptioner creates a Captioner.
func NewCaptioner(provider Provider, cfg config.Config, logger *slog.Logger) *Captioner {
	return &Captioner{provider: provider, cfg: cfg, logger: logger}
}

// Run captions the images in imageDir, writing one UTF-8 .txt file per image
// into captionDir. At most cfg.Workers requests are in flight at once, and
// submissions are spaced by the configured rate to respect provider limits.
// Responses missing the configured trigger token are rejected, not written.
func (c *Captioner) Run(ctx context.Context, imageDir, captionDir string) (Result, error) {
	if err := os.MkdirAll(captionDir, 0755); err != nil {
		return Result{}, fmt.Errorf("failed to create caption directory: %w", err)
	}

	images, err := inventory.Scan(imageDir)
	if err != nil {
		return Result{}, fmt.Errorf("failed to scan image directory: %w", err)
	}

	var (
		result Result
		mu     sync.Mutex
	)

	var pending []inventory.Descriptor
	for _, img := range images {
		captionPath := c.captionPath(captionDir, img.Name)
		if captionExists(captionPath) {
			c.logger.Info("skipping, caption already exists", "image", img.Name)
			result.Skipped++
			continue
		}
		pending = append(pending, img)
	}

	c.logger.Info("starting caption generation",
		"backend", c.cfg.Backend.Name, "images", len(pending), "workers", c.cfg.Workers)

	c.forEach(ctx, pending, func(img inventory.Descriptor) {
		description, err := c.provider.Describe(ctx, img.Path)

		mu.Lock()
		defer mu.Unlock()
		result.Submitted++

		if err != nil {
			c.logger.Error("caption generation failed", "image", img.Name, "error", err)
			result.Failed++
			return
		}
		description = strings.ToValidUTF8(description, "")
		if description == "" {
			c.logger.Info("rejected, no description generated", "image", img.Name)
			result.Rejected++
			return
		}
		if c.cfg.TriggerToken != "" && !strings.Contains(description, c.cfg.TriggerToken) {
			c.logger.Info("rejected, trigger token missing",
				"image", img.Name, "caption", description)
			result.Rejected++
			return
		}

		captionPath := c.captionPath(captionDir, img.Name)
		if err := os.WriteFile(captionPath, []byte(description), 0644); err != nil {
			c.logger.Error("failed to write caption", "path", captionPath, "error", err)
			result.Failed++
			return
		}
		c.logger.Info("processed", "image", img.Name)
		result.Written++
	})

	c.logger.Info("finished caption generation",
		"written", result.Written, "rejected", result.Rejected, "failed", result.Failed)
	return result, nil
}

func (c *Captioner) captionPath(captionDir, imageName string) string {
	stem := strings.TrimSuffix(imageName, filepath.Ext(imageName))
	return filepath.Join(captionDir, stem+".txt")
}

func captionExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// forEach runs fn over images with a bounded worker pool, throttling
// submissions to cfg.SubmissionRate per second. It returns once every
// submitted job finished; a canceled context stops further submissions.
func (c *Captioner) forEach(ctx context.Context, images []inventory.Descriptor, fn func(inventory.Descriptor)) {
	forEachThrottled(ctx, images, c.cfg.Workers, c.cfg.SubmissionRate, fn)
}

func forEachThrottled(ctx context.Context, images []inventory.Descriptor, workers int, rate float64, fn func(inventory.Descriptor)) {
	if workers < 1 {
		workers = 1
	}
	delay := time.Duration(0)
	if rate > 0 {
		delay = time.Duration(float64(time.Second) / rate)
	}

	jobs := make(chan inventory.Descriptor)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for img := range jobs {
				fn(img)
			}
		}()
	}

feed:
	for _, img := range images {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- img:
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				break feed
			case <-time.After(delay):
			}
		}
	}
	close(jobs)
	wg.Wait()
}
