package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"trainset/internal/config"
)

// chatProvider speaks the OpenAI-compatible chat completions surface used
// by the openai, grok, and lmstudio backends.
type chatProvider struct {
	cfg    config.Config
	client *http.Client
}

func newChatProvider(cfg config.Config) *chatProvider {
	return &chatProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Describe generates a caption for the image.
func (p *chatProvider) Describe(ctx context.Context, imagePath string) (string, error) {
	return p.complete(ctx, imagePath, describePrompt(p.cfg.TriggerToken))
}

// Analyze asks for structured probability metadata and parses it.
func (p *chatProvider) Analyze(ctx context.Context, imagePath string) (Analysis, error) {
	raw, err := p.complete(ctx, imagePath, analyzePrompt)
	if err != nil {
		return Analysis{}, err
	}
	return parseAnalysis(raw)
}

// complete sends one chat completion request, retrying with exponential
// backoff on rate-limit responses up to the configured retry count.
func (p *chatProvider) complete(ctx context.Context, imagePath, prompt string) (string, error) {
	imageB64, err := encodeImage(imagePath)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Model:       p.cfg.Backend.Model,
		Temperature: 0.1,
		MaxTokens:   300,
		Messages: []chatMessage{
			{Role: "system", Content: describeSystemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL: "data:image/jpeg;base64," + imageB64,
				}},
			}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := strings.TrimRight(p.cfg.Backend.BaseURL, "/") + "/chat/completions"

	for attempt := 0; ; attempt++ {
		content, status, err := p.send(ctx, url, body)
		if err == nil {
			return content, nil
		}
		if status != http.StatusTooManyRequests || attempt >= p.cfg.ThrottleRetries {
			return "", err
		}

		wait := time.Duration(math.Pow(p.cfg.BackoffFactor, float64(attempt+1))) * time.Second
		slog.Warn("rate limit exceeded, retrying", "wait", wait, "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (p *chatProvider) send(ctx context.Context, url string, body []byte) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.Backend.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.Backend.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return "", resp.StatusCode, fmt.Errorf("received status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to decode response body: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", resp.StatusCode, fmt.Errorf("response contained no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), resp.StatusCode, nil
}

// parseAnalysis extracts the JSON object from a model response, tolerating
// surrounding prose and markdown code fences.
func parseAnalysis(raw string) (Analysis, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Analysis{}, fmt.Errorf("no JSON object in response: %q", raw)
	}

	var a Analysis
	if err := json.Unmarshal([]byte(raw[start:end+1]), &a); err != nil {
		return Analysis{}, fmt.Errorf("failed to parse analysis: %w", err)
	}
	return a, nil
}
