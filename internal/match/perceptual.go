package match

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"os"
	"sort"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"trainset/internal/inventory"
)

// PerceptualMatcher groups visually similar images by comparing 64-bit
// average-hash fingerprints. Fingerprints are cached per scan generation so
// repeated threshold queries over the same inventory do not re-decode files.
type PerceptualMatcher struct {
	fingerprints map[string]uint64
}

// NewPerceptualMatcher creates a new PerceptualMatcher.
func NewPerceptualMatcher() *PerceptualMatcher {
	return &PerceptualMatcher{fingerprints: make(map[string]uint64)}
}

// Reset discards cached fingerprints. Call after rescanning so descriptors
// relocated by a previous layer cannot linger in the cache.
func (m *PerceptualMatcher) Reset() {
	m.fingerprints = make(map[string]uint64)
}

// FindGroups groups images whose Hamming distance to a group seed is at most
// threshold. Grouping is greedy and order-dependent by policy: images are
// visited in inventory order, each unassigned image seeds a new group, and
// later unassigned images within threshold of the seed are absorbed. Members
// are compared against the seed only, not against each other, so groups are
// not transitively closed under the threshold. Images that fail to decode
// are skipped. Groups of one are discarded.
func (m *PerceptualMatcher) FindGroups(images []inventory.Descriptor, threshold int) []Group {
	n := len(images)
	if n < 2 {
		return nil
	}

	fps := make([]uint64, n)
	ok := make([]bool, n)
	for i, img := range images {
		fp, err := m.fingerprint(img.Path)
		if err != nil {
			continue
		}
		fps[i] = fp
		ok[i] = true
	}

	return groupByFingerprint(images, fps, ok, threshold)
}

// groupByFingerprint implements the greedy seed-based grouping over already
// computed fingerprints.
func groupByFingerprint(images []inventory.Descriptor, fps []uint64, ok []bool, threshold int) []Group {
	n := len(images)
	tree := newBKTree()
	for i := range images {
		if ok[i] {
			tree.insert(fps[i], i)
		}
	}

	assigned := make([]bool, n)
	var groups []Group
	for i := range images {
		if assigned[i] || !ok[i] {
			continue
		}

		neighbors := tree.withinDistance(fps[i], threshold)
		sort.Ints(neighbors)

		members := []inventory.Descriptor{images[i]}
		for _, j := range neighbors {
			if j == i || assigned[j] {
				continue
			}
			members = append(members, images[j])
			assigned[j] = true
		}

		if len(members) >= 2 {
			assigned[i] = true
			groups = append(groups, Group{Images: members})
		}
	}

	return groups
}

// fingerprint returns the cached average hash for path, computing it on the
// first request within the current scan generation.
func (m *PerceptualMatcher) fingerprint(path string) (uint64, error) {
	if fp, cached := m.fingerprints[path]; cached {
		return fp, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return 0, err
	}

	hash, err := goimagehash.AverageHash(img)
	if err != nil {
		return 0, err
	}

	fp := hash.GetHash()
	m.fingerprints[path] = fp
	return fp, nil
}

// HammingDistance counts the differing bits between two fingerprints.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
