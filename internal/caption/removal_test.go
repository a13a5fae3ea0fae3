package caption

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"trainset/internal/config"
	"trainset/internal/inventory"
)

func boolPtr(b bool) *bool { return &b }

func TestEvaluateRemoval(t *testing.T) {
	th := config.Thresholds{Solo: 0.9, Gender: 0.9}

	tests := []struct {
		name   string
		a      Analysis
		opts   FilterOptions
		remove bool
	}{
		{
			name:   "no requirements keeps everything",
			a:      Analysis{SoloP: 0.1, WomanP: 0.1, ManP: 0.1},
			opts:   FilterOptions{},
			remove: false,
		},
		{
			name:   "women filter keeps high probability",
			a:      Analysis{WomanP: 0.95},
			opts:   FilterOptions{Gender: "women"},
			remove: false,
		},
		{
			name:   "women filter removes low probability",
			a:      Analysis{WomanP: 0.5},
			opts:   FilterOptions{Gender: "women"},
			remove: true,
		},
		{
			name:   "men filter uses man probability",
			a:      Analysis{WomanP: 0.95, ManP: 0.1},
			opts:   FilterOptions{Gender: "men"},
			remove: true,
		},
		{
			name:   "solo required keeps solo shots",
			a:      Analysis{SoloP: 0.95},
			opts:   FilterOptions{RequireSolo: boolPtr(true)},
			remove: false,
		},
		{
			name:   "solo required removes group shots",
			a:      Analysis{SoloP: 0.3},
			opts:   FilterOptions{RequireSolo: boolPtr(true)},
			remove: true,
		},
		{
			name:   "group required removes solo shots",
			a:      Analysis{SoloP: 0.95},
			opts:   FilterOptions{RequireSolo: boolPtr(false)},
			remove: true,
		},
		{
			name:   "group required keeps group shots",
			a:      Analysis{SoloP: 0.05},
			opts:   FilterOptions{RequireSolo: boolPtr(false)},
			remove: false,
		},
		{
			name:   "either requirement failing removes",
			a:      Analysis{SoloP: 0.95, WomanP: 0.5},
			opts:   FilterOptions{Gender: "women", RequireSolo: boolPtr(true)},
			remove: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remove, reasons := evaluateRemoval(tt.a, tt.opts, th)
			if remove != tt.remove {
				t.Errorf("remove = %v, want %v (reasons: %v)", remove, tt.remove, reasons)
			}
			if remove && len(reasons) == 0 {
				t.Error("a removal must carry at least one reason")
			}
			if !remove && len(reasons) != 0 {
				t.Errorf("a kept image must carry no reasons, got %v", reasons)
			}
		})
	}
}

func TestFilter_MovesMismatchesWithCaptions(t *testing.T) {
	dir := t.TempDir()
	keepPath := writeImage(t, dir, "keep.jpg")
	removePath := writeImage(t, dir, "remove.jpg")
	if err := os.WriteFile(inventory.CaptionPath(removePath), []byte("caption"), 0644); err != nil {
		t.Fatal(err)
	}

	provider := &fakeProvider{
		analyze: func(path string) (Analysis, error) {
			if filepath.Base(path) == "keep.jpg" {
				return Analysis{SoloP: 0.95}, nil
			}
			return Analysis{SoloP: 0.2}, nil
		},
	}
	cfg := config.Config{Workers: 2, Thresholds: config.Thresholds{Solo: 0.9, Gender: 0.9}}
	opts := FilterOptions{RequireSolo: boolPtr(true)}

	result, err := Filter(context.Background(), dir, provider, cfg, opts, testLogger())
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}

	if result.Processed != 2 || result.Removed != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	if _, err := os.Stat(keepPath); err != nil {
		t.Error("matching image must stay in place")
	}
	if _, err := os.Stat(removePath); !os.IsNotExist(err) {
		t.Error("mismatching image must be moved out")
	}
	removedDir := filepath.Join(dir, RemovedDirName)
	if _, err := os.Stat(filepath.Join(removedDir, "remove.jpg")); err != nil {
		t.Error("mismatching image must land in removed/")
	}
	if _, err := os.Stat(filepath.Join(removedDir, "remove.txt")); err != nil {
		t.Error("caption must move with its image")
	}
	if len(result.Moved) != 1 || len(result.Moved[0].Reasons) == 0 {
		t.Errorf("expected one removal with reasons, got %+v", result.Moved)
	}
}

func TestFilter_AnalysisFailureKeepsImage(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "a.jpg")

	provider := &fakeProvider{
		analyze: func(string) (Analysis, error) {
			return Analysis{}, os.ErrDeadlineExceeded
		},
	}
	cfg := config.Config{Workers: 1, Thresholds: config.Thresholds{Solo: 0.9, Gender: 0.9}}

	result, err := Filter(context.Background(), dir, provider, cfg, FilterOptions{Gender: "women"}, testLogger())
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if result.Removed != 0 {
		t.Errorf("Removed = %d, want 0 on analysis failure", result.Removed)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("image must stay in place when analysis fails")
	}
}

func TestFilter_EmptyDirectory(t *testing.T) {
	provider := &fakeProvider{}
	cfg := config.Config{Workers: 1}

	result, err := Filter(context.Background(), t.TempDir(), provider, cfg, FilterOptions{}, testLogger())
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if result.Processed != 0 || result.Removed != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
}
