package match

import (
	"sort"
	"testing"
)

func TestBKTree_Empty(t *testing.T) {
	tree := newBKTree()
	if results := tree.withinDistance(0, 10); len(results) != 0 {
		t.Errorf("expected empty results for empty tree, got %d", len(results))
	}
}

func TestBKTree_SingleElement(t *testing.T) {
	tree := newBKTree()
	tree.insert(0b1111, 0)

	if results := tree.withinDistance(0b1111, 0); len(results) != 1 || results[0] != 0 {
		t.Errorf("exact match: expected [0], got %v", results)
	}
	if results := tree.withinDistance(0b1110, 1); len(results) != 1 || results[0] != 0 {
		t.Errorf("within threshold: expected [0], got %v", results)
	}
	if results := tree.withinDistance(0b0000, 3); len(results) != 0 {
		t.Errorf("outside threshold: expected [], got %v", results)
	}
}

func TestBKTree_MultipleElements(t *testing.T) {
	fingerprints := []uint64{
		0b0000, // index 0
		0b0001, // index 1, distance 1 from 0
		0b0011, // index 2, distance 2 from 0
		0b1111, // index 3, distance 4 from 0
		0b0000, // index 4, duplicate fingerprint
	}

	tree := newBKTree()
	for i, fp := range fingerprints {
		tree.insert(fp, i)
	}

	tests := []struct {
		name      string
		query     uint64
		threshold int
		expected  []int
	}{
		{"exact", 0b0000, 0, []int{0, 4}},
		{"distance 1", 0b0000, 1, []int{0, 1, 4}},
		{"distance 2", 0b0000, 2, []int{0, 1, 2, 4}},
		{"all", 0b0000, 64, []int{0, 1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := tree.withinDistance(tt.query, tt.threshold)
			sort.Ints(results)
			if len(results) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, results)
			}
			for i := range results {
				if results[i] != tt.expected[i] {
					t.Fatalf("expected %v, got %v", tt.expected, results)
				}
			}
		})
	}
}
