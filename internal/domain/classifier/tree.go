package classifier

import (
	"math/rand"
	"sort"
)

// node is one decision-tree node. Leaf nodes carry the class-1 fraction of
// the training samples that reached them; internal nodes route on
// value <= Threshold to Left, otherwise to Right.
type node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Leaf      bool    `json:"leaf"`
	Prob      float64 `json:"p"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

// predict walks the tree and returns the leaf class-1 probability.
func (t *tree) predict(v []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Prob
		}
		if v[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// treeParams bounds a single tree fit.
type treeParams struct {
	maxDepth int
	minLeaf  int
	mtry     int
}

// treeBuilder grows one CART tree on a bootstrap sample, accumulating
// per-feature impurity decrease for the importance report.
type treeBuilder struct {
	x          [][]float64
	y          []bool
	params     treeParams
	rng        *rand.Rand
	tree       *tree
	importance []float64
	total      int
}

func growTree(x [][]float64, y []bool, idx []int, params treeParams, rng *rand.Rand, importance []float64) tree {
	b := &treeBuilder{
		x:          x,
		y:          y,
		params:     params,
		rng:        rng,
		tree:       &tree{},
		importance: importance,
		total:      len(idx),
	}
	b.build(idx, 0)
	return *b.tree
}

// build appends the subtree for idx and returns its root node index.
func (b *treeBuilder) build(idx []int, depth int) int {
	pos := 0
	for _, i := range idx {
		if b.y[i] {
			pos++
		}
	}
	prob := float64(pos) / float64(len(idx))

	if depth >= b.params.maxDepth || len(idx) < 2*b.params.minLeaf || pos == 0 || pos == len(idx) {
		return b.leaf(prob)
	}

	feat, threshold, gain := b.bestSplit(idx, prob)
	if feat < 0 {
		return b.leaf(prob)
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.x[i][feat] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < b.params.minLeaf || len(right) < b.params.minLeaf {
		return b.leaf(prob)
	}

	b.importance[feat] += gain * float64(len(idx)) / float64(b.total)

	self := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, node{Feature: feat, Threshold: threshold})
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.tree.Nodes[self].Left = l
	b.tree.Nodes[self].Right = r
	return self
}

func (b *treeBuilder) leaf(prob float64) int {
	b.tree.Nodes = append(b.tree.Nodes, node{Leaf: true, Prob: prob})
	return len(b.tree.Nodes) - 1
}

// bestSplit searches a random feature subset for the threshold with the
// largest Gini impurity decrease. Returns feature -1 when nothing improves
// on the parent impurity.
func (b *treeBuilder) bestSplit(idx []int, parentProb float64) (int, float64, float64) {
	parentGini := gini(parentProb)
	bestFeat, bestThreshold, bestGain := -1, 0.0, 0.0

	features := b.rng.Perm(len(featureNames))[:b.params.mtry]
	sorted := make([]int, len(idx))

	for _, feat := range features {
		copy(sorted, idx)
		sort.Slice(sorted, func(p, q int) bool { return b.x[sorted[p]][feat] < b.x[sorted[q]][feat] })

		leftPos, leftN := 0, 0
		totalPos := 0
		for _, i := range sorted {
			if b.y[i] {
				totalPos++
			}
		}

		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			leftN++
			if b.y[i] {
				leftPos++
			}
			cur, next := b.x[i][feat], b.x[sorted[k+1]][feat]
			if cur == next {
				continue
			}

			rightN := len(sorted) - leftN
			rightPos := totalPos - leftPos
			wl := float64(leftN) / float64(len(sorted))
			wr := float64(rightN) / float64(len(sorted))
			g := parentGini -
				wl*gini(float64(leftPos)/float64(leftN)) -
				wr*gini(float64(rightPos)/float64(rightN))

			if g > bestGain {
				bestFeat = feat
				bestThreshold = (cur + next) / 2
				bestGain = g
			}
		}
	}
	return bestFeat, bestThreshold, bestGain
}

// gini returns the binary Gini impurity for a class-1 fraction.
func gini(p float64) float64 {
	return 2 * p * (1 - p)
}
