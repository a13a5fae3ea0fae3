package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"trainset/internal/dedupe"
	"trainset/internal/storage"
)

func newDedupeCmd() *cobra.Command {
	var auto bool

	cmd := &cobra.Command{
		Use:   "dedupe <dir>",
		Short: "Find and quarantine duplicate images",
		Long: `Detect duplicate images through layered similarity passes, from exact
byte matches down to loosely similar shots, and move the losers of each
group into a duplicates/ subdirectory. Paired .txt caption files move with
their images.

In interactive mode each layer is presented as a whole and resolved with a
single keypress: (c)ontinue, (s)kip, or e(x)it. With --auto every group is
resolved with the recommended keeper without prompting.

Example:
  trainset dedupe ./photos
  trainset dedupe ./photos --auto`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(args[0])
			if err != nil {
				return fmt.Errorf("directory not found: %w", err)
			}

			orch := dedupe.New(dir, dedupe.WithAuto(auto))
			stats, err := orch.Run()
			if err != nil {
				return err
			}

			recordDedupeRun(dir, auto, stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&auto, "auto", false, "Apply all recommendations without prompting")
	return cmd
}

// recordDedupeRun saves the run to history. History is reporting only, so a
// storage failure never fails the command.
func recordDedupeRun(dir string, auto bool, stats *dedupe.Stats) {
	store, err := storage.Open(dbPath)
	if err != nil {
		slog.Warn("failed to open history database", "error", err)
		return
	}
	defer store.Close()

	mode := "interactive"
	if auto {
		mode = "auto"
	}

	relocations := make([]storage.Relocation, 0, len(stats.Relocations))
	for _, rel := range stats.Relocations {
		relocations = append(relocations, storage.Relocation{
			Layer:        rel.Layer,
			Source:       rel.Record.Source,
			Dest:         rel.Record.Dest,
			CaptionMoved: rel.Record.CaptionMoved,
			SizeBytes:    rel.SizeBytes,
		})
	}

	run := storage.Run{
		Directory:  dir,
		Mode:       mode,
		Kept:       stats.Kept,
		Moved:      stats.Moved,
		BytesMoved: stats.BytesMoved,
	}
	if _, err := store.RecordRun(run, relocations); err != nil {
		slog.Warn("failed to record run history", "error", err)
	}
}
