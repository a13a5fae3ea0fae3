// Package cmd wires the trainset CLI.
package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"trainset/internal/config"
)

var (
	dbPath     string
	configPath string
	cfg        config.Config
)

// NewRootCmd builds the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trainset",
		Short: "Generate captions and curate training image datasets",
		Long: `trainset builds training-caption datasets for image models.

It generates one caption per image with a vision-capable LLM, finds and
quarantines duplicate images through a layered similarity pipeline, filters
images that do not match dataset requirements, and repairs text-file
encodings.

Example usage:
  trainset dedupe ./photos            # Interactive duplicate cleanup
  trainset dedupe ./photos --auto     # Apply all recommendations
  trainset caption ./photos --backend openai
  trainset filter ./photos --backend openai --gender women --solo
  trainset history                    # Show past runs`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env if present (ignore errors)
			_ = godotenv.Load()

			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg.LogLevel)
			return nil
		},
	}

	homeDir, _ := os.UserHomeDir()
	defaultDB := filepath.Join(homeDir, ".trainset", "trainset.db")

	cmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "Path to the run history database")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")

	cmd.AddCommand(newDedupeCmd())
	cmd.AddCommand(newCaptionCmd())
	cmd.AddCommand(newFilterCmd())
	cmd.AddCommand(newFixEncodingCmd())
	cmd.AddCommand(newHistoryCmd())

	return cmd
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// resolveDir turns a directory argument into an absolute path and verifies
// it exists.
func resolveDir(arg string) (string, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", os.ErrInvalid
	}
	return abs, nil
}
