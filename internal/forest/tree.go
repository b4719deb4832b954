package forest

import (
	"math/rand"
	"slices"
)

// Node is one decision node or leaf of a tree.
// Leaves have Feature == -1 and carry the fraud fraction in Value.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Samples   int
}

// Tree is a binary CART tree stored as a flat node slice; Nodes[0] is the root.
type Tree struct {
	Nodes []Node
}

// Leaf returns the leaf reached by x.
func (t *Tree) Leaf(x []float64) *Node {
	n := &t.Nodes[0]
	for n.Feature >= 0 {
		if x[n.Feature] <= n.Threshold {
			n = &t.Nodes[n.Left]
		} else {
			n = &t.Nodes[n.Right]
		}
	}
	return n
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i, d int) int
	walk = func(i, d int) int {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return d
		}
		return max(walk(n.Left, d+1), walk(n.Right, d+1))
	}
	return walk(0, 0)
}

// grower holds the state needed to grow one tree.
type grower struct {
	x          [][]float64
	y          []int
	params     Params
	mtry       int
	rng        *rand.Rand
	importance []float64
}

type pending struct {
	node  int
	idx   []int
	depth int
}

// split is the best partition found for a node.
type split struct {
	feature   int
	threshold float64
	impurity  float64
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 1 - p*p - (1-p)*(1-p)
}

func (g *grower) positives(idx []int) int {
	pos := 0
	for _, i := range idx {
		pos += g.y[i]
	}
	return pos
}

// grow builds a tree over the sample indices idx (duplicates allowed).
func (g *grower) grow(idx []int) Tree {
	t := Tree{Nodes: []Node{{}}}
	stack := []pending{{node: 0, idx: idx, depth: 0}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := len(p.idx)
		pos := g.positives(p.idx)
		node := &t.Nodes[p.node]
		node.Feature = -1
		node.Value = float64(pos) / float64(n)
		node.Samples = n

		if pos == 0 || pos == n ||
			(g.params.MaxDepth > 0 && p.depth >= g.params.MaxDepth) ||
			n < g.params.MinSamplesSplit ||
			n < 2*g.params.MinSamplesLeaf {
			continue
		}

		best, ok := g.bestSplit(p.idx, pos)
		if !ok {
			continue
		}

		var left, right []int
		for _, i := range p.idx {
			if g.x[i][best.feature] <= best.threshold {
				left = append(left, i)
			} else {
				right = append(right, i)
			}
		}

		parent := gini(pos, n)
		g.importance[best.feature] += float64(n) * (parent - best.impurity)

		l, r := len(t.Nodes), len(t.Nodes)+1
		t.Nodes = append(t.Nodes, Node{}, Node{})
		// Re-take the pointer: append may have moved the slice.
		node = &t.Nodes[p.node]
		node.Feature = best.feature
		node.Threshold = best.threshold
		node.Left = l
		node.Right = r

		stack = append(stack,
			pending{node: r, idx: right, depth: p.depth + 1},
			pending{node: l, idx: left, depth: p.depth + 1},
		)
	}
	return t
}

// bestSplit evaluates random features until mtry have been tried and at
// least one valid split exists, or all features are exhausted.
func (g *grower) bestSplit(idx []int, pos int) (split, bool) {
	n := len(idx)
	best := split{impurity: 2}
	found := false
	sorted := make([]int, n)

	for tried, f := range g.rng.Perm(len(g.x[0])) {
		if tried >= g.mtry && found {
			break
		}

		copy(sorted, idx)
		slices.SortFunc(sorted, func(a, b int) int {
			va, vb := g.x[a][f], g.x[b][f]
			switch {
			case va < vb:
				return -1
			case va > vb:
				return 1
			}
			return 0
		})
		if g.x[sorted[0]][f] == g.x[sorted[n-1]][f] {
			continue
		}

		leftPos := 0
		minLeaf := g.params.MinSamplesLeaf
		for i := 0; i < n-1; i++ {
			leftPos += g.y[sorted[i]]
			lo, hi := g.x[sorted[i]][f], g.x[sorted[i+1]][f]
			if lo == hi {
				continue
			}
			nl, nr := i+1, n-i-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}

			imp := (float64(nl)*gini(leftPos, nl) + float64(nr)*gini(pos-leftPos, nr)) / float64(n)
			if imp < best.impurity {
				threshold := lo/2 + hi/2
				if threshold >= hi {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, impurity: imp}
				found = true
			}
		}
	}
	return best, found
}
