package match

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"trainset/internal/inventory"
)

// FindExactGroups groups images by a SHA-256 digest over their full byte
// content. Only groups of two or more are returned. Files that cannot be
// read are skipped and excluded from all groups.
func FindExactGroups(images []inventory.Descriptor) []Group {
	if len(images) < 2 {
		return nil
	}

	byDigest := make(map[string][]inventory.Descriptor)
	var order []string
	for _, img := range images {
		digest, err := fileDigest(img.Path)
		if err != nil {
			continue
		}
		if _, ok := byDigest[digest]; !ok {
			order = append(order, digest)
		}
		byDigest[digest] = append(byDigest[digest], img)
	}

	var groups []Group
	for _, digest := range order {
		if members := byDigest[digest]; len(members) >= 2 {
			groups = append(groups, Group{Images: members})
		}
	}
	return groups
}

// fileDigest computes the SHA-256 hash of a file, streamed so large files
// are never loaded into memory whole.
func fileDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
