// Package match groups images judged equivalent under one detection method:
// exact content hashing or perceptual fingerprinting.
package match

import "trainset/internal/inventory"

// Group is an ordered set of two or more descriptors judged duplicates of
// each other. Groups produced by one matcher call are disjoint.
type Group struct {
	Images []inventory.Descriptor
}
