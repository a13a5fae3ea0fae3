package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"trainset/internal/caption"
	"trainset/internal/config"
)

func newCaptionCmd() *cobra.Command {
	var (
		backend    string
		captionDir string
	)

	cmd := &cobra.Command{
		Use:   "caption <dir>",
		Short: "Generate image captions with a vision-capable model",
		Long: `Generate one caption per image using a cloud provider (OpenAI, GROK) or
a local server (LM Studio, Ollama). Captions are written as UTF-8 .txt
files sharing the image's stem; images that already have a caption are
skipped.

API keys come from the environment (OPENAI_API_KEY, GROK_API_KEY, ...).

Example:
  trainset caption ./photos --backend openai
  trainset caption ./photos --backend ollama --caption-dir ./captions`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(args[0])
			if err != nil {
				return fmt.Errorf("directory not found: %w", err)
			}

			if err := cfg.SelectBackend(backend); err != nil {
				return err
			}
			provider, err := caption.NewProvider(cfg)
			if err != nil {
				return err
			}

			if captionDir == "" {
				captionDir = dir
			}

			captioner := caption.NewCaptioner(provider, cfg, slog.Default())
			result, err := captioner.Run(cmd.Context(), dir, captionDir)
			if err != nil {
				return err
			}

			fmt.Println()
			fmt.Println("=== Caption Run Complete ===")
			fmt.Printf("Written:  %d\n", result.Written)
			fmt.Printf("Skipped:  %d (already captioned)\n", result.Skipped)
			fmt.Printf("Rejected: %d\n", result.Rejected)
			fmt.Printf("Failed:   %d\n", result.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "",
		"Model backend: "+strings.Join(config.ValidBackends(), ", "))
	cmd.Flags().StringVar(&captionDir, "caption-dir", "",
		"Directory for caption files (default: the image directory)")
	cmd.MarkFlagRequired("backend")

	return cmd
}
