// Package caption generates training captions for images with a
// vision-capable LLM, and filters images that do not match dataset
// requirements.
package caption

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"trainset/internal/config"
)

// Analysis is the structured probability metadata a provider returns for
// removal filtering.
type Analysis struct {
	SoloP   float64 `json:"is_solo_p"`
	WomanP  float64 `json:"is_woman_p"`
	ManP    float64 `json:"is_man_p"`
	Thought string  `json:"thought,omitempty"`
}

// Provider is the narrow contract the rest of the system calls: describe an
// image, or return structured probability metadata for it. Either may fail
// and may be retried by the implementation.
type Provider interface {
	Describe(ctx context.Context, imagePath string) (string, error)
	Analyze(ctx context.Context, imagePath string) (Analysis, error)
}

// NewProvider returns the provider for the configured backend. The openai,
// grok, and lmstudio backends share the chat completions wire shape and
// differ only in base URL, model, and key.
func NewProvider(cfg config.Config) (Provider, error) {
	switch cfg.Backend.Name {
	case "ollama":
		return newOllamaProvider(cfg), nil
	case "openai", "grok", "lmstudio":
		return newChatProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend.Name)
	}
}

// encodeImage reads a file and returns its base64 encoding.
func encodeImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

const describeSystemPrompt = "You are an expert at generating detailed and accurate " +
	"stable diffusion type prompts. You emphasize photo realism and accuracy " +
	"in your captions."

// describePrompt builds the caption request. When a trigger token is
// configured the model is instructed to open the caption with it.
func describePrompt(trigger string) string {
	var b strings.Builder
	b.WriteString("Describe the content of this image as a detailed and accurate ")
	b.WriteString("caption for a stable diffusion model prompt. The caption should ")
	b.WriteString("be short, concise and accurate, and should not contain any ")
	b.WriteString("information not immediately descriptive of the image. Avoid all ")
	b.WriteString("words with single quotes, double quotes, or any other special characters.")
	if trigger != "" {
		fmt.Fprintf(&b, " Identify the primary subject as %s, always lowercase, ", trigger)
		b.WriteString("as early as possible in the caption.")
	}
	return b.String()
}

const analyzePrompt = `Analyze this image and respond with a single JSON object
and nothing else, in this exact shape:
{"is_solo_p": 0.0, "is_woman_p": 0.0, "is_man_p": 0.0, "thought": "one short sentence"}
where is_solo_p is the probability that exactly one person is in the image,
is_woman_p the probability the primary subject is a woman, and is_man_p the
probability the primary subject is a man. Probabilities are between 0 and 1.`
