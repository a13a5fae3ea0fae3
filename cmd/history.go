package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trainset/internal/dedupe"
	"trainset/internal/storage"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit   int
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past dedupe and filter runs",
		Long: `List recent curation runs with their kept/moved counts and reclaimed
space. With --verbose each run's relocation records are shown.

Example:
  trainset history
  trainset history -n 0 --verbose   # All runs with details`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open history database: %w", err)
			}
			defer store.Close()

			runs, err := store.RecentRuns(limit)
			if err != nil {
				return fmt.Errorf("failed to load runs: %w", err)
			}

			if len(runs) == 0 {
				fmt.Println("No runs recorded yet.")
				return nil
			}

			fmt.Printf("%-5s  %-19s  %-11s  %5s  %5s  %10s  %s\n",
				"Run", "When", "Mode", "Kept", "Moved", "Reclaimed", "Directory")
			fmt.Println(strings.Repeat("-", 90))
			for _, run := range runs {
				fmt.Printf("#%-4d  %-19s  %-11s  %5d  %5d  %10s  %s\n",
					run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"),
					run.Mode, run.Kept, run.Moved,
					dedupe.FormatSize(run.BytesMoved), run.Directory)

				if !verbose {
					continue
				}
				relocations, err := store.Relocations(run.ID)
				if err != nil {
					return err
				}
				for _, rel := range relocations {
					marker := ""
					if rel.CaptionMoved {
						marker = " (+caption)"
					}
					fmt.Printf("       %-15s %s -> %s%s\n", rel.Layer, rel.Source, rel.Dest, marker)
				}
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show (0 = all)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show relocation records per run")
	return cmd
}
