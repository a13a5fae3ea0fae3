package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"trainset/internal/caption"
	"trainset/internal/config"
	"trainset/internal/storage"
)

func newFilterCmd() *cobra.Command {
	var (
		backend string
		gender  string
		solo    bool
		group   bool
	)

	cmd := &cobra.Command{
		Use:   "filter <dir>",
		Short: "Remove images that do not match dataset requirements",
		Long: `Analyze every image with the model backend and move mismatches into a
removed/ subdirectory (captions move along). Requirements are expressed as
probability thresholds over the model's structured analysis: subject gender
and whether the image is a solo shot.

Example:
  trainset filter ./photos --backend openai --gender women --solo
  trainset filter ./photos --backend ollama --group`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(args[0])
			if err != nil {
				return fmt.Errorf("directory not found: %w", err)
			}

			if gender != "" && gender != "women" && gender != "men" {
				return fmt.Errorf("invalid --gender %q (use women or men)", gender)
			}
			if solo && group {
				return fmt.Errorf("--solo and --group are mutually exclusive")
			}

			if err := cfg.SelectBackend(backend); err != nil {
				return err
			}
			provider, err := caption.NewProvider(cfg)
			if err != nil {
				return err
			}

			opts := caption.FilterOptions{Gender: gender}
			if solo {
				v := true
				opts.RequireSolo = &v
			} else if group {
				v := false
				opts.RequireSolo = &v
			}

			result, err := caption.Filter(cmd.Context(), dir, provider, cfg, opts, slog.Default())
			if err != nil {
				return err
			}

			recordFilterRun(dir, result)

			fmt.Println()
			fmt.Println("=== Filter Run Complete ===")
			fmt.Printf("Analyzed: %d\n", result.Processed)
			fmt.Printf("Removed:  %d\n", result.Removed)
			fmt.Printf("Dest:     %s\n", result.DestDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "",
		"Model backend: "+strings.Join(config.ValidBackends(), ", "))
	cmd.Flags().StringVar(&gender, "gender", "", "Required subject gender: women or men")
	cmd.Flags().BoolVar(&solo, "solo", false, "Require a single subject")
	cmd.Flags().BoolVar(&group, "group", false, "Require a group shot")
	cmd.MarkFlagRequired("backend")

	return cmd
}

func recordFilterRun(dir string, result caption.FilterResult) {
	store, err := storage.Open(dbPath)
	if err != nil {
		slog.Warn("failed to open history database", "error", err)
		return
	}
	defer store.Close()

	var bytesMoved int64
	relocations := make([]storage.Relocation, 0, len(result.Moved))
	for _, m := range result.Moved {
		bytesMoved += m.SizeBytes
		relocations = append(relocations, storage.Relocation{
			Layer:        "FILTER",
			Source:       m.Record.Source,
			Dest:         m.Record.Dest,
			CaptionMoved: m.Record.CaptionMoved,
			SizeBytes:    m.SizeBytes,
		})
	}

	run := storage.Run{
		Directory:  dir,
		Mode:       "filter",
		Kept:       result.Processed - result.Removed,
		Moved:      result.Removed,
		BytesMoved: bytesMoved,
	}
	if _, err := store.RecordRun(run, relocations); err != nil {
		slog.Warn("failed to record run history", "error", err)
	}
}
