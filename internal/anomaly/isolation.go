package anomaly

import (
	"math"
	"math/rand"
)

const (
	defaultTreeCount  = 100
	defaultSampleSize = 256
	defaultRandomSeed = 42
)

// IsolationForest isolates anomalies by random recursive partitioning.
// Points that isolate in few splits score close to 1; deep, hard-to-isolate
// points score close to 0.
type IsolationForest struct {
	TreeCount  int
	SampleSize int
	Seed       int64

	trees      []*isolationNode
	sampleUsed int
}

type isolationNode struct {
	left, right *isolationNode
	splitCol    int
	splitValue  float64
	size        int
}

// NewIsolationForest returns a forest with the standard ensemble shape.
func NewIsolationForest() *IsolationForest {
	return &IsolationForest{
		TreeCount:  defaultTreeCount,
		SampleSize: defaultSampleSize,
		Seed:       defaultRandomSeed,
	}
}

// Fit builds the ensemble over the given matrix. Fitting on fewer rows than
// the sample size shrinks the per-tree sample accordingly.
func (f *IsolationForest) Fit(matrix [][]float64) {
	f.trees = nil
	if len(matrix) == 0 {
		return
	}
	sample := f.SampleSize
	if sample > len(matrix) {
		sample = len(matrix)
	}
	f.sampleUsed = sample
	maxDepth := int(math.Ceil(math.Log2(float64(sample)))) + 1

	rng := rand.New(rand.NewSource(f.Seed))
	f.trees = make([]*isolationNode, f.TreeCount)
	for t := 0; t < f.TreeCount; t++ {
		idx := rng.Perm(len(matrix))[:sample]
		subsample := make([][]float64, sample)
		for i, j := range idx {
			subsample[i] = matrix[j]
		}
		f.trees[t] = buildIsolationTree(subsample, 0, maxDepth, rng)
	}
}

func buildIsolationTree(rows [][]float64, depth, maxDepth int, rng *rand.Rand) *isolationNode {
	if len(rows) <= 1 || depth >= maxDepth {
		return &isolationNode{size: len(rows)}
	}
	cols := len(rows[0])

	// Pick a split column that actually varies; give up after a few tries
	// and treat the partition as terminal.
	var col int
	var lo, hi float64
	found := false
	for attempt := 0; attempt < cols; attempt++ {
		col = rng.Intn(cols)
		lo, hi = rows[0][col], rows[0][col]
		for _, r := range rows {
			if r[col] < lo {
				lo = r[col]
			}
			if r[col] > hi {
				hi = r[col]
			}
		}
		if hi > lo {
			found = true
			break
		}
	}
	if !found {
		return &isolationNode{size: len(rows)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right [][]float64
	for _, r := range rows {
		if r[col] < split {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &isolationNode{size: len(rows)}
	}
	return &isolationNode{
		splitCol:   col,
		splitValue: split,
		left:       buildIsolationTree(left, depth+1, maxDepth, rng),
		right:      buildIsolationTree(right, depth+1, maxDepth, rng),
	}
}

func pathLength(node *isolationNode, row []float64, depth float64) float64 {
	if node.left == nil {
		return depth + avgPathLength(node.size)
	}
	if row[node.splitCol] < node.splitValue {
		return pathLength(node.left, row, depth+1)
	}
	return pathLength(node.right, row, depth+1)
}

// avgPathLength is the expected path length of an unsuccessful search in a
// binary search tree of n nodes, the standard normalizer c(n).
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649015329
	return 2*h - 2*float64(n-1)/float64(n)
}

// Score returns anomaly scores in [0,1] for each row, min-max normalized so
// 1 marks the most anomalous row. Degenerate inputs where every row scores
// identically return all zeros.
func (f *IsolationForest) Score(matrix [][]float64) []float64 {
	scores := make([]float64, len(matrix))
	if len(f.trees) == 0 || len(matrix) == 0 {
		return scores
	}
	c := avgPathLength(f.sampleUsed)
	if c == 0 {
		c = 1
	}
	for i, row := range matrix {
		var sum float64
		for _, tree := range f.trees {
			sum += pathLength(tree, row, 0)
		}
		mean := sum / float64(len(f.trees))
		scores[i] = math.Pow(2, -mean/c)
	}

	lo, hi := scores[0], scores[0]
	for _, s := range scores {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	if hi-lo < 1e-12 {
		for i := range scores {
			scores[i] = 0
		}
		return scores
	}
	for i := range scores {
		scores[i] = (scores[i] - lo) / (hi - lo)
	}
	return scores
}
