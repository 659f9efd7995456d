package detect

import (
	"math"
	"math/rand"
)

// HalfSpaceTrees is an online isolation-forest-style ensemble. Tree
// structure (random split dimensions and midpoints over a randomized
// workspace) is fixed when the model is built; only node masses change as
// observations stream in. Masses are kept for two tumbling windows: the
// reference window scores, the latest window accumulates, and the two swap
// every windowSize observations.
//
// Inputs are normalized to [0, 1] per dimension with running min-max
// bounds, so the model needs no prior knowledge of feature scales.
type HalfSpaceTrees struct {
	nTrees     int
	height     int
	windowSize int
	sizeLimit  float64
	dims       int
	seed       int64

	trees   []*hsNode
	mins    []float64
	maxs    []float64
	seen    int
	total   int
	swapped bool
}

type hsNode struct {
	feature int
	split   float64
	left    *hsNode
	right   *hsNode
	depth   int
	massRef float64
	massCur float64
}

// NewHalfSpaceTrees builds the ensemble. subsampleSize sets the minimum
// reference mass below which score traversal stops descending (a tenth of
// it, per the reference detector). The seed makes the structure
// deterministic.
func NewHalfSpaceTrees(nTrees, height, subsampleSize, windowSize, dims int, seed int64) *HalfSpaceTrees {
	h := &HalfSpaceTrees{
		nTrees:     nTrees,
		height:     height,
		windowSize: windowSize,
		sizeLimit:  0.1 * float64(subsampleSize),
		dims:       dims,
		seed:       seed,
		mins:       make([]float64, dims),
		maxs:       make([]float64, dims),
	}
	for i := range h.mins {
		h.mins[i] = math.Inf(1)
		h.maxs[i] = math.Inf(-1)
	}
	rng := rand.New(rand.NewSource(seed))
	h.trees = make([]*hsNode, nTrees)
	for i := range h.trees {
		lo := make([]float64, dims)
		hi := make([]float64, dims)
		for d := 0; d < dims; d++ {
			// Randomized workspace per Tan et al.: a random anchor and a
			// symmetric range wide enough to cover [0, 1] from it.
			s := rng.Float64()
			span := math.Max(s, 1-s)
			lo[d] = s - 2*span
			hi[d] = s + 2*span
		}
		h.trees[i] = buildHSNode(rng, lo, hi, 0, height)
	}
	return h
}

func buildHSNode(rng *rand.Rand, lo, hi []float64, depth, height int) *hsNode {
	n := &hsNode{depth: depth}
	if depth == height {
		n.feature = -1
		return n
	}
	q := rng.Intn(len(lo))
	split := (lo[q] + hi[q]) / 2
	n.feature = q
	n.split = split

	leftHi := append([]float64(nil), hi...)
	leftHi[q] = split
	rightLo := append([]float64(nil), lo...)
	rightLo[q] = split
	n.left = buildHSNode(rng, lo, leftHi, depth+1, height)
	n.right = buildHSNode(rng, rightLo, hi, depth+1, height)
	return n
}

// normalize maps x into [0, 1] per dimension using the running bounds,
// widening them first so the sample itself always fits.
func (h *HalfSpaceTrees) normalize(x []float64, widen bool) []float64 {
	out := make([]float64, h.dims)
	for d := 0; d < h.dims && d < len(x); d++ {
		v := x[d]
		if widen {
			if v < h.mins[d] {
				h.mins[d] = v
			}
			if v > h.maxs[d] {
				h.maxs[d] = v
			}
		}
		span := h.maxs[d] - h.mins[d]
		switch {
		case math.IsInf(h.mins[d], 1) || span <= 0:
			out[d] = 0.5
		case v <= h.mins[d]:
			out[d] = 0
		case v >= h.maxs[d]:
			out[d] = 1
		default:
			out[d] = (v - h.mins[d]) / span
		}
	}
	return out
}

// Score returns the anomaly score for x in [0, 1]. A point landing in
// well-populated regions across the ensemble scores near 0.
func (h *HalfSpaceTrees) Score(x []float64) float64 {
	z := h.normalize(x, false)
	raw := 0.0
	for _, root := range h.trees {
		raw += scoreTree(root, z, h.sizeLimit, !h.swapped)
	}
	max := float64(h.nTrees) * float64(h.windowSize) * math.Pow(2, float64(h.height))
	if max <= 0 {
		return 0
	}
	score := 1 - raw/max
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// scoreTree descends while the reference mass stays above the size limit
// and returns the mass-depth product where traversal stops. Until the
// first window swap the accumulating masses stand in for the reference
// window, so early scores are not uniformly maximal.
func scoreTree(n *hsNode, z []float64, sizeLimit float64, useCur bool) float64 {
	for {
		mass := n.massRef
		if useCur {
			mass = n.massCur
		}
		score := mass * math.Pow(2, float64(n.depth))
		if n.feature < 0 || mass < sizeLimit {
			return score
		}
		if z[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
	}
}

// Update learns x: the latest-window mass increments along each tree path,
// and the windows swap once windowSize observations have accumulated.
func (h *HalfSpaceTrees) Update(x []float64) {
	z := h.normalize(x, true)
	for _, root := range h.trees {
		n := root
		for {
			n.massCur++
			if n.feature < 0 {
				break
			}
			if z[n.feature] < n.split {
				n = n.left
			} else {
				n = n.right
			}
		}
	}
	h.seen++
	h.total++
	if h.seen >= h.windowSize {
		for _, root := range h.trees {
			swapMasses(root)
		}
		h.seen = 0
		h.swapped = true
	}
}

func swapMasses(n *hsNode) {
	if n == nil {
		return
	}
	n.massRef = n.massCur
	n.massCur = 0
	swapMasses(n.left)
	swapMasses(n.right)
}

// Observations returns the number of learned samples.
func (h *HalfSpaceTrees) Observations() int { return h.total }
