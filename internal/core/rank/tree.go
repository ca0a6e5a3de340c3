package rank

import (
	"math"
	"sort"
)

// node is one split or leaf of a regression tree. Every node carries the
// Newton weight it would emit as a leaf, which lets prediction paths be
// decomposed into per-feature contributions.
type node struct {
	Feature     int     `json:"feature"`
	Threshold   float64 `json:"threshold"`
	DefaultLeft bool    `json:"default_left"`
	Left        int     `json:"left"`
	Right       int     `json:"right"`
	Leaf        bool    `json:"leaf"`
	Value       float64 `json:"value"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

func (t *tree) predict(x []float64) float64 {
	path := t.decisionPath(x)
	return t.Nodes[path[len(path)-1]].Value
}

// decisionPath walks from the root to a leaf, sending missing values down
// each split's learned default direction, and returns the node indices
// visited in order.
func (t *tree) decisionPath(x []float64) []int {
	path := []int{0}
	i := 0
	for !t.Nodes[i].Leaf {
		n := &t.Nodes[i]
		v := x[n.Feature]
		switch {
		case math.IsNaN(v):
			if n.DefaultLeft {
				i = n.Left
			} else {
				i = n.Right
			}
		case v < n.Threshold:
			i = n.Left
		default:
			i = n.Right
		}
		path = append(path, i)
	}
	return path
}

type treeBuilder struct {
	vectors        [][]float64
	grad           []float64
	hess           []float64
	maxDepth       int
	lambda         float64
	minChildWeight float64

	nodes []node
}

type splitResult struct {
	feature     int
	threshold   float64
	defaultLeft bool
	gain        float64
	left        []int
	right       []int
}

func (b *treeBuilder) build(rows []int) tree {
	b.nodes = b.nodes[:0]
	b.grow(rows, 0)
	return tree{Nodes: append([]node(nil), b.nodes...)}
}

// grow appends the subtree for rows and returns its root index.
func (b *treeBuilder) grow(rows []int, depth int) int {
	var sumG, sumH float64
	for _, r := range rows {
		sumG += b.grad[r]
		sumH += b.hess[r]
	}
	weight := -sumG / (sumH + b.lambda)

	idx := len(b.nodes)
	b.nodes = append(b.nodes, node{Leaf: true, Value: weight})

	if depth >= b.maxDepth || len(rows) < 2 {
		return idx
	}
	best := b.bestSplit(rows, sumG, sumH)
	if best == nil {
		return idx
	}

	left := b.grow(best.left, depth+1)
	right := b.grow(best.right, depth+1)

	b.nodes[idx] = node{
		Feature:     best.feature,
		Threshold:   best.threshold,
		DefaultLeft: best.defaultLeft,
		Left:        left,
		Right:       right,
		Value:       weight,
	}
	return idx
}

func (b *treeBuilder) bestSplit(rows []int, sumG, sumH float64) *splitResult {
	var best *splitResult

	numFeatures := len(b.vectors[rows[0]])
	for f := 0; f < numFeatures; f++ {
		if s := b.bestSplitOn(f, rows, sumG, sumH); s != nil {
			if best == nil || s.gain > best.gain {
				best = s
			}
		}
	}
	return best
}

// bestSplitOn scans every threshold for one feature. Rows with a missing
// value carry their gradient mass to whichever side of the split yields
// the higher gain, and that side becomes the default direction.
func (b *treeBuilder) bestSplitOn(feature int, rows []int, sumG, sumH float64) *splitResult {
	present := make([]int, 0, len(rows))
	var missG, missH float64
	hasMissing := false
	for _, r := range rows {
		if math.IsNaN(b.vectors[r][feature]) {
			missG += b.grad[r]
			missH += b.hess[r]
			hasMissing = true
			continue
		}
		present = append(present, r)
	}
	if len(present) < 2 {
		return nil
	}

	sort.Slice(present, func(i, j int) bool {
		return b.vectors[present[i]][feature] < b.vectors[present[j]][feature]
	})

	parent := gainTerm(sumG, sumH, b.lambda)

	var best *splitResult
	var leftG, leftH float64
	for i := 0; i < len(present)-1; i++ {
		r := present[i]
		leftG += b.grad[r]
		leftH += b.hess[r]

		lo := b.vectors[r][feature]
		hi := b.vectors[present[i+1]][feature]
		if lo == hi {
			continue
		}
		threshold := lo + (hi-lo)/2

		rightG := sumG - missG - leftG
		rightH := sumH - missH - leftH

		// Missing mass on the left, then on the right.
		for _, defaultLeft := range []bool{true, false} {
			lg, lh, rg, rh := leftG, leftH, rightG, rightH
			if defaultLeft {
				lg += missG
				lh += missH
			} else {
				rg += missG
				rh += missH
			}
			if lh < b.minChildWeight || rh < b.minChildWeight {
				continue
			}
			gain := gainTerm(lg, lh, b.lambda) + gainTerm(rg, rh, b.lambda) - parent
			if gain <= 0 || (best != nil && gain <= best.gain) {
				continue
			}
			best = &splitResult{
				feature:     feature,
				threshold:   threshold,
				defaultLeft: defaultLeft,
				gain:        gain,
			}
			if !hasMissing {
				// Identical gain either way; keep the conventional default.
				best.defaultLeft = true
				break
			}
		}
	}
	if best == nil {
		return nil
	}

	best.left, best.right = b.partition(feature, best.threshold, best.defaultLeft, rows)
	return best
}

func (b *treeBuilder) partition(feature int, threshold float64, defaultLeft bool, rows []int) (left, right []int) {
	for _, r := range rows {
		v := b.vectors[r][feature]
		switch {
		case math.IsNaN(v):
			if defaultLeft {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		case v < threshold:
			left = append(left, r)
		default:
			right = append(right, r)
		}
	}
	return left, right
}

func gainTerm(g, h, lambda float64) float64 {
	return g * g / (h + lambda)
}
