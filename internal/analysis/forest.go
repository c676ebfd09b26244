package analysis

import (
	"fmt"
	"math"
)

// Statistical scoring constants. The raw decision range and the veto
// threshold are invariants of the design, not tunables.
const (
	rawDecisionMin = -0.5
	rawDecisionMax = 0.5
	vetoZThreshold = 3.0
	degradedZScale = 5.0
)

// ForestNode is one node of a JSON-exported isolation tree. Leaf nodes carry
// Feature == -1 and the number of training samples that reached them.
type ForestNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Size      int     `json:"size"`
}

// Tree is a single isolation tree, nodes indexed from the root at 0
type Tree struct {
	Nodes []ForestNode `json:"nodes"`
}

// Forest is a pre-trained isolation forest exported to JSON. Training happens
// offline; this type only evaluates.
type Forest struct {
	Trees      []Tree `json:"trees"`
	SampleSize int    `json:"sample_size"`
}

func (f *Forest) validate() error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	if f.SampleSize < 2 {
		return fmt.Errorf("forest sample size %d is invalid", f.SampleSize)
	}
	for i, tree := range f.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", i)
		}
	}
	return nil
}

// Decision returns the raw anomaly decision value for a feature vector,
// approximately in [-0.5, 0.5] with lower values meaning more anomalous.
func (f *Forest) Decision(features []float64) float64 {
	total := 0.0
	for i := range f.Trees {
		total += f.Trees[i].pathLength(features)
	}
	avgPath := total / float64(len(f.Trees))

	// Anomaly score per Liu et al.: s = 2^(-E[h]/c(n)), decision = 0.5 - s
	score := math.Pow(2, -avgPath/averagePathLength(f.SampleSize))
	return 0.5 - score
}

// pathLength walks the tree to a leaf, adding the unsplit-subtree correction
// for leaves that hold more than one sample
func (t *Tree) pathLength(features []float64) float64 {
	depth := 0.0
	idx := 0

	for {
		if idx < 0 || idx >= len(t.Nodes) {
			return depth
		}

		node := t.Nodes[idx]
		if node.Feature < 0 || node.Feature >= len(features) {
			if node.Size > 1 {
				depth += averagePathLength(node.Size)
			}
			return depth
		}

		depth++
		if features[node.Feature] < node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// BST search over n samples
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+0.5772156649) - 2*(fn-1)/fn
}

// scoreStatistical maps the forest decision onto [0,1] risk, degrading to a
// z-score proxy when the forest is unavailable. The veto rule applies in
// both modes: a value z-score above 3 forces risk 1.0.
func scoreStatistical(forest *Forest, fv FeatureVector) (risk, raw float64) {
	if forest != nil {
		raw = forest.Decision(fv.Slice())
		risk = clip(1-((raw-rawDecisionMin)/(rawDecisionMax-rawDecisionMin)), 0, 1)
	} else {
		risk = math.Min(math.Abs(fv.ZScoreValue)/degradedZScale, 1)
		raw = -risk // schema compatibility with the normal-mode raw output
	}

	if fv.ZScoreValue > vetoZThreshold {
		risk = 1.0
	}

	return risk, raw
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
