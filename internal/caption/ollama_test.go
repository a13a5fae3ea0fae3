package caption

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"trainset/internal/config"
)

func TestOllamaProvider_Describe(t *testing.T) {
	var gotPath string
	var gotReq map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]string{"response": " [trigger] a llava caption "})
	}))
	defer srv.Close()

	cfg := config.Config{
		TriggerToken: "[trigger]",
		Backend:      config.Backend{Name: "ollama", Model: "llava", BaseURL: srv.URL},
	}
	p := newOllamaProvider(cfg)

	got, err := p.Describe(context.Background(), writeImage(t, t.TempDir(), "a.jpg"))
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}

	if got != "[trigger] a llava caption" {
		t.Errorf("caption = %q, want trimmed reply", got)
	}
	if gotPath != "/api/generate" {
		t.Errorf("path = %q, want /api/generate", gotPath)
	}
	if gotReq["model"] != "llava" {
		t.Errorf("model = %v, want llava", gotReq["model"])
	}
	if gotReq["stream"] != false {
		t.Errorf("stream = %v, want false", gotReq["stream"])
	}
	images, ok := gotReq["images"].([]any)
	if !ok || len(images) != 1 {
		t.Errorf("expected one base64 image, got %v", gotReq["images"])
	}
}

func TestOllamaProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := config.Config{Backend: config.Backend{Name: "ollama", Model: "llava", BaseURL: srv.URL}}
	p := newOllamaProvider(cfg)

	if _, err := p.Describe(context.Background(), writeImage(t, t.TempDir(), "a.jpg")); err == nil {
		t.Error("expected error for non-200 response")
	}
}
