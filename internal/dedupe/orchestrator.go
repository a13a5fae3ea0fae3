// Package dedupe drives the layered duplicate detection pipeline: scanning,
// group detection, keeper selection, user decisions, and relocation.
package dedupe

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"trainset/internal/inventory"
	"trainset/internal/match"
	"trainset/internal/relocate"
	"trainset/internal/score"
)

// QuarantineDirName is the subdirectory duplicates are moved into.
const QuarantineDirName = "duplicates"

// Layer is one pass of the pipeline: a single detection method at a single
// confidence band.
type Layer struct {
	Name        string
	Description string
	Risk        string
	Confidence  int
	Exact       bool
	Threshold   int
}

// DefaultLayers returns the standard pipeline, ordered strict to loose.
// Perceptual tiers past NEAR-IDENTICAL reuse the same numeric threshold:
// the mechanism is shared, the human-facing risk labels are not.
func DefaultLayers() []Layer {
	return []Layer{
		{
			Name:        "EXACT",
			Description: "Files that are 100% identical (same bytes). Safe to remove.",
			Risk:        "SAFE",
			Confidence:  100,
			Exact:       true,
		},
		{
			Name:        "IDENTICAL",
			Description: "Images that look identical but may have different metadata. Very safe.",
			Risk:        "SAFE",
			Confidence:  95,
			Threshold:   0,
		},
		{
			Name:        "NEAR-IDENTICAL",
			Description: "Images with tiny differences (small crops, watermarks). Low risk.",
			Risk:        "LOW RISK",
			Confidence:  85,
			Threshold:   2,
		},
		{
			Name:        "VERY-SIMILAR",
			Description: "Same image with different processing (filters, resolution). Medium risk.",
			Risk:        "MEDIUM RISK",
			Confidence:  70,
			Threshold:   2,
		},
		{
			Name:        "SIMILAR",
			Description: "Related images (burst photos, similar shots). Review carefully.",
			Risk:        "HIGHER RISK",
			Confidence:  50,
			Threshold:   2,
		},
	}
}

// DecisionReader supplies one decision character per prompt. The terminal
// implementation reads a raw keypress; tests inject scripted decisions.
type DecisionReader interface {
	ReadDecision() (rune, error)
}

// Relocation pairs a relocation record with the layer that caused it.
type Relocation struct {
	Layer     string
	Record    relocate.Record
	SizeBytes int64
}

// Stats accumulates across the whole run. They feed the end-of-run summary
// and run history only, never decision logic.
type Stats struct {
	Kept        int
	Moved       int
	BytesMoved  int64
	ByLayer     map[string]int
	Relocations []Relocation
}

// Orchestrator runs the pipeline over one directory.
type Orchestrator struct {
	dir        string
	quarantine string
	auto       bool
	out        io.Writer
	decisions  DecisionReader
	layers     []Layer
	perceptual *match.PerceptualMatcher
	stats      Stats
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAuto resolves every group with the recommended keeper, no prompting.
func WithAuto(auto bool) Option {
	return func(o *Orchestrator) { o.auto = auto }
}

// WithDecisionReader sets the source of interactive decisions.
func WithDecisionReader(r DecisionReader) Option {
	return func(o *Orchestrator) { o.decisions = r }
}

// WithOutput redirects progress and summary output.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// WithLayers overrides the default layer pipeline.
func WithLayers(layers []Layer) Option {
	return func(o *Orchestrator) { o.layers = layers }
}

// New creates an Orchestrator for dir. Duplicates are quarantined in a
// subdirectory of dir.
func New(dir string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		dir:        dir,
		quarantine: filepath.Join(dir, QuarantineDirName),
		out:        os.Stdout,
		decisions:  NewTermReader(),
		layers:     DefaultLayers(),
		perceptual: match.NewPerceptualMatcher(),
		stats:      Stats{ByLayer: make(map[string]int)},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes every layer in order and returns the accumulated stats.
// Finding no duplicates is a normal outcome, not an error; only a failure
// to list the target directory aborts.
func (o *Orchestrator) Run() (*Stats, error) {
	mode := "INTERACTIVE"
	if o.auto {
		mode = "AUTO"
	}
	fmt.Fprintf(o.out, "\nDuplicate Detection [%s]\n", mode)
	fmt.Fprintf(o.out, "Directory: %s\n\n", o.dir)

	images, err := inventory.Scan(o.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}
	fmt.Fprintf(o.out, "Found %d images\n", len(images))

	if len(images) == 0 {
		fmt.Fprintln(o.out, "No images found")
		o.printSummary()
		return &o.stats, nil
	}

	for _, layer := range o.layers {
		exit, err := o.processLayer(layer)
		if err != nil {
			return nil, err
		}
		if exit {
			break
		}
	}

	o.printSummary()
	return &o.stats, nil
}

// processLayer runs one detection layer. It reports whether the user asked
// to stop the whole pipeline.
func (o *Orchestrator) processLayer(layer Layer) (bool, error) {
	fmt.Fprintln(o.out, strings.Repeat("-", 70))
	fmt.Fprintf(o.out, "Layer: %s (%d%% confidence match)\n", layer.Name, layer.Confidence)
	fmt.Fprintf(o.out, "What this finds: %s\n", layer.Description)
	fmt.Fprintf(o.out, "Risk level: %s\n\n", layer.Risk)

	// Rescan so files moved by earlier layers disappear from this one.
	images, err := inventory.Scan(o.dir)
	if err != nil {
		return false, fmt.Errorf("failed to rescan directory: %w", err)
	}
	o.perceptual.Reset()

	var groups []match.Group
	if layer.Exact {
		groups = match.FindExactGroups(images)
	} else {
		groups = o.perceptual.FindGroups(images, layer.Threshold)
	}

	if len(groups) == 0 {
		fmt.Fprintln(o.out, "No duplicates found")
		return false, nil
	}

	totalFiles := 0
	for _, g := range groups {
		totalFiles += len(g.Images)
	}
	fmt.Fprintf(o.out, "Found %d duplicate groups (%d files to move)\n\n",
		len(groups), totalFiles-len(groups))

	if o.auto {
		o.applyGroups(groups, layer.Name)
		return false, nil
	}

	return o.decideLayer(groups, layer.Name)
}

// decideLayer presents the whole layer at once and takes a single decision:
// apply everything, skip the layer, or exit the pipeline. Unrecognized
// input re-prompts; it never silently defaults to an action.
func (o *Orchestrator) decideLayer(groups []match.Group, layerName string) (bool, error) {
	for _, g := range groups {
		keeper, reason := score.RecommendKeeper(g.Images)
		if keeper == nil {
			continue
		}
		var losers []string
		for _, img := range g.Images {
			if img.Path != keeper.Path {
				losers = append(losers, img.Name)
			}
		}
		fmt.Fprintf(o.out, "  keep %-40s (%s)\n", keeper.Name, reason)
		fmt.Fprintf(o.out, "       move: %s\n", strings.Join(losers, ", "))
	}

	for {
		fmt.Fprintln(o.out, "\n  (c)ontinue - process ALL groups in this layer")
		fmt.Fprintln(o.out, "  (s)kip     - skip this entire layer")
		fmt.Fprintln(o.out, "  e(x)it     - stop and show summary")

		choice, err := o.decisions.ReadDecision()
		if err != nil {
			// Decision source exhausted: treat as exit so the run
			// still ends with a summary.
			return true, nil
		}

		switch choice {
		case 'c', 'C':
			o.applyGroups(groups, layerName)
			return false, nil
		case 's', 'S':
			fmt.Fprintln(o.out, "  Skipped layer")
			return false, nil
		case 'x', 'X':
			fmt.Fprintln(o.out, "  Exiting...")
			return true, nil
		default:
			fmt.Fprintln(o.out, "  Please press c, s, or x")
		}
	}
}

// applyGroups resolves every group: the keeper stays, everything else is
// relocated. Per-file failures are independent and never roll back moves
// that already happened.
func (o *Orchestrator) applyGroups(groups []match.Group, layerName string) {
	for _, g := range groups {
		keeper, _ := score.RecommendKeeper(g.Images)
		if keeper == nil {
			continue
		}

		for _, img := range g.Images {
			if img.Path == keeper.Path {
				continue
			}
			rec, ok := relocate.Relocate(img, o.quarantine)
			if !ok {
				fmt.Fprintf(o.out, "  failed to move %s\n", img.Name)
				continue
			}
			o.stats.Moved++
			o.stats.BytesMoved += img.SizeBytes
			o.stats.ByLayer[layerName]++
			o.stats.Relocations = append(o.stats.Relocations, Relocation{
				Layer:     layerName,
				Record:    rec,
				SizeBytes: img.SizeBytes,
			})
			fmt.Fprintf(o.out, "  -> %s moved to %s/\n", img.Name, QuarantineDirName)
		}
		o.stats.Kept++
	}

	if moved := o.stats.ByLayer[layerName]; moved > 0 {
		fmt.Fprintf(o.out, "Layer complete: moved %d duplicates\n\n", moved)
	}
}

func (o *Orchestrator) printSummary() {
	fmt.Fprintln(o.out, strings.Repeat("=", 70))
	fmt.Fprintln(o.out, "DEDUPLICATION COMPLETE")
	fmt.Fprintln(o.out, strings.Repeat("=", 70))
	fmt.Fprintf(o.out, "  Files kept:   %d\n", o.stats.Kept)
	fmt.Fprintf(o.out, "  Files moved:  %d\n", o.stats.Moved)
	fmt.Fprintf(o.out, "  Space saved:  %s\n", FormatSize(o.stats.BytesMoved))

	if len(o.stats.ByLayer) > 0 {
		fmt.Fprintln(o.out, "\n  By layer:")
		for _, layer := range o.layers {
			if count := o.stats.ByLayer[layer.Name]; count > 0 {
				fmt.Fprintf(o.out, "    %-15s %d duplicates\n", layer.Name, count)
			}
		}
	}
	fmt.Fprintf(o.out, "\n  Quarantine: %s\n\n", o.quarantine)
}

// FormatSize renders a byte count in human-readable form.
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
