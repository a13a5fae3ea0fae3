package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"trainset/internal/config"
)

// ollamaProvider talks to a local Ollama server.
type ollamaProvider struct {
	cfg    config.Config
	client *http.Client
}

func newOllamaProvider(cfg config.Config) *ollamaProvider {
	return &ollamaProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 300 * time.Second},
	}
}

// Describe generates a caption for the image.
func (p *ollamaProvider) Describe(ctx context.Context, imagePath string) (string, error) {
	return p.generate(ctx, imagePath, describePrompt(p.cfg.TriggerToken))
}

// Analyze asks for structured probability metadata and parses it.
func (p *ollamaProvider) Analyze(ctx context.Context, imagePath string) (Analysis, error) {
	raw, err := p.generate(ctx, imagePath, analyzePrompt)
	if err != nil {
		return Analysis{}, err
	}
	return parseAnalysis(raw)
}

func (p *ollamaProvider) generate(ctx context.Context, imagePath, prompt string) (string, error) {
	imageB64, err := encodeImage(imagePath)
	if err != nil {
		return "", err
	}

	requestBody, err := json.Marshal(map[string]any{
		"model":  p.cfg.Backend.Model,
		"prompt": prompt,
		"images": []string{imageB64},
		"stream": false,
		"options": map[string]any{
			"temperature": 0.1,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := strings.TrimRight(p.cfg.Backend.BaseURL, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	return strings.TrimSpace(response.Response), nil
}
