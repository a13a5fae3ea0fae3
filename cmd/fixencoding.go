package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"trainset/internal/textenc"
)

func newFixEncodingCmd() *cobra.Command {
	var (
		captionDir string
		configDir  string
	)

	cmd := &cobra.Command{
		Use:   "fix-encoding",
		Short: "Rewrite caption and config text files as UTF-8",
		Long: `Scan the caption and config directories for .txt/.yml/.yaml files saved
in a legacy encoding (latin-1, cp1252) and rewrite them as UTF-8. Files
already valid UTF-8 are left untouched.

Example:
  trainset fix-encoding --caption-dir ./captions --config-dir ./config`,
		RunE: func(cmd *cobra.Command, args []string) error {
			captions, err := resolveDir(captionDir)
			if err != nil {
				return fmt.Errorf("caption directory not found: %w", err)
			}
			configs, err := resolveDir(configDir)
			if err != nil {
				return fmt.Errorf("config directory not found: %w", err)
			}

			fixed, err := textenc.FixDirs([]string{captions, configs}, slog.Default())
			if err != nil {
				return err
			}

			fmt.Printf("Converted %d file(s) to UTF-8\n", fixed)
			return nil
		},
	}

	cmd.Flags().StringVar(&captionDir, "caption-dir", "", "Captions directory")
	cmd.Flags().StringVar(&configDir, "config-dir", "", "Configuration directory")
	cmd.MarkFlagRequired("caption-dir")
	cmd.MarkFlagRequired("config-dir")

	return cmd
}
