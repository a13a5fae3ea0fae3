package match

// bkTree indexes fingerprints by Hamming distance so all elements within a
// threshold of a query can be found without comparing against every entry.
type bkTree struct {
	root *bkNode
}

type bkNode struct {
	fingerprint uint64
	index       int
	children    map[int]*bkNode // distance -> child node
}

func newBKTree() *bkTree {
	return &bkTree{}
}

// insert adds a fingerprint with its inventory index to the tree.
func (t *bkTree) insert(fingerprint uint64, index int) {
	node := &bkNode{
		fingerprint: fingerprint,
		index:       index,
		children:    make(map[int]*bkNode),
	}

	if t.root == nil {
		t.root = node
		return
	}

	current := t.root
	for {
		dist := HammingDistance(fingerprint, current.fingerprint)
		child, exists := current.children[dist]
		if !exists {
			current.children[dist] = node
			return
		}
		current = child
	}
}

// withinDistance returns the indices of all entries whose Hamming distance
// to the query fingerprint is at most threshold.
func (t *bkTree) withinDistance(fingerprint uint64, threshold int) []int {
	if t.root == nil {
		return nil
	}

	var results []int
	t.search(t.root, fingerprint, threshold, &results)
	return results
}

func (t *bkTree) search(node *bkNode, fingerprint uint64, threshold int, results *[]int) {
	dist := HammingDistance(fingerprint, node.fingerprint)
	if dist <= threshold {
		*results = append(*results, node.index)
	}

	// Triangle inequality: only children with distance in
	// [dist-threshold, dist+threshold] can contain matches.
	for childDist, child := range node.children {
		if childDist >= dist-threshold && childDist <= dist+threshold {
			t.search(child, fingerprint, threshold, results)
		}
	}
}
