package match

import (
	"os"
	"path/filepath"
	"testing"

	"trainset/internal/inventory"
)

func writeFile(t *testing.T, dir, name string, data []byte) inventory.Descriptor {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return inventory.Descriptor{Path: path, Name: name, SizeBytes: int64(len(data))}
}

func TestFindExactGroups_IdenticalContent(t *testing.T) {
	dir := t.TempDir()
	content := []byte("identical image bytes")

	a := writeFile(t, dir, "a.jpg", content)
	b := writeFile(t, dir, "b.jpg", content)
	c := writeFile(t, dir, "c.jpg", []byte("something else entirely"))

	groups := FindExactGroups([]inventory.Descriptor{a, b, c})

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if len(groups[0].Images) != 2 {
		t.Fatalf("expected group of 2, got %d", len(groups[0].Images))
	}
	if groups[0].Images[0].Name != "a.jpg" || groups[0].Images[1].Name != "b.jpg" {
		t.Errorf("unexpected group members: %v", groups[0].Images)
	}
}

func TestFindExactGroups_SingleByteDifference(t *testing.T) {
	dir := t.TempDir()

	a := writeFile(t, dir, "a.jpg", []byte("image bytes A"))
	b := writeFile(t, dir, "b.jpg", []byte("image bytes B"))

	groups := FindExactGroups([]inventory.Descriptor{a, b})
	if len(groups) != 0 {
		t.Errorf("expected no groups for differing content, got %d", len(groups))
	}
}

func TestFindExactGroups_UnreadableFileSkipped(t *testing.T) {
	dir := t.TempDir()
	content := []byte("identical image bytes")

	a := writeFile(t, dir, "a.jpg", content)
	b := writeFile(t, dir, "b.jpg", content)
	missing := inventory.Descriptor{Path: filepath.Join(dir, "gone.jpg"), Name: "gone.jpg"}

	groups := FindExactGroups([]inventory.Descriptor{a, missing, b})

	if len(groups) != 1 || len(groups[0].Images) != 2 {
		t.Fatalf("expected one group of 2, got %v", groups)
	}
	for _, img := range groups[0].Images {
		if img.Name == "gone.jpg" {
			t.Error("unreadable file must not appear in any group")
		}
	}
}

func TestFindExactGroups_TooFewImages(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.jpg", []byte("x"))

	if groups := FindExactGroups([]inventory.Descriptor{a}); groups != nil {
		t.Errorf("expected nil for a single image, got %v", groups)
	}
}
