package model

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// EnsembleClassifier is a bagged ensemble of CART-style decision trees with
// inverse-frequency class weighting. All randomness (bootstrap draws,
// feature subsampling) flows from the constructor seed.
type EnsembleClassifier struct {
	NTrees   int
	MaxDepth int
	MinLeaf  int

	seed        int64
	trees       []*treeNode
	importances []float64
	fitted      bool
}

// NewEnsembleClassifier creates an ensemble classifier with default
// hyperparameters.
func NewEnsembleClassifier(seed int64) *EnsembleClassifier {
	return &EnsembleClassifier{
		NTrees:   100,
		MaxDepth: 10,
		MinLeaf:  1,
		seed:     seed,
	}
}

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	leaf      bool
	prob      float64 // weighted positive fraction at a leaf
}

// Fit trains the ensemble on X/y.
func (c *EnsembleClassifier) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("invalid training shape: %d rows, %d labels", len(X), len(y))
	}
	nFeatures := len(X[0])
	sampleWeights, _ := balancedSampleWeights(y)

	rng := rand.New(rand.NewSource(c.seed))
	mtry := int(math.Sqrt(float64(nFeatures)))
	if mtry < 1 {
		mtry = 1
	}

	c.trees = make([]*treeNode, 0, c.NTrees)
	c.importances = make([]float64, nFeatures)
	for t := 0; t < c.NTrees; t++ {
		idx := make([]int, len(X))
		for i := range idx {
			idx[i] = rng.Intn(len(X))
		}
		tree := c.growTree(X, y, sampleWeights, idx, 0, mtry, rng)
		c.trees = append(c.trees, tree)
	}

	total := 0.0
	for _, v := range c.importances {
		total += v
	}
	if total > 0 {
		for i := range c.importances {
			c.importances[i] /= total
		}
	}

	c.fitted = true
	return nil
}

// PredictProba averages leaf probabilities across trees.
func (c *EnsembleClassifier) PredictProba(X [][]float64) []float64 {
	probs := make([]float64, len(X))
	if !c.fitted || len(c.trees) == 0 {
		return probs
	}
	for i, row := range X {
		sum := 0.0
		for _, tree := range c.trees {
			sum += tree.predict(row)
		}
		probs[i] = sum / float64(len(c.trees))
	}
	return probs
}

// FeatureImportances returns normalized impurity-decrease importances.
func (c *EnsembleClassifier) FeatureImportances() []float64 {
	out := make([]float64, len(c.importances))
	copy(out, c.importances)
	return out
}

func (c *EnsembleClassifier) growTree(X [][]float64, y []int, w []float64, idx []int, depth, mtry int, rng *rand.Rand) *treeNode {
	posW, totW := weightedCounts(y, w, idx)
	node := &treeNode{leaf: true, prob: safeRatio(posW, totW)}
	if depth >= c.MaxDepth || len(idx) <= c.MinLeaf || posW == 0 || posW == totW {
		return node
	}

	nFeatures := len(X[0])
	features := rng.Perm(nFeatures)[:mtry]

	bestGain := 0.0
	bestFeature, bestThreshold := -1, 0.0
	parentGini := weightedGini(posW, totW)

	for _, feat := range features {
		gain, threshold, ok := bestSplitForFeature(X, y, w, idx, feat, parentGini)
		if ok && gain > bestGain {
			bestGain = gain
			bestFeature = feat
			bestThreshold = threshold
		}
	}
	if bestFeature < 0 {
		return node
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if X[i][bestFeature] <= bestThreshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		return node
	}

	c.importances[bestFeature] += bestGain * totW

	node.leaf = false
	node.feature = bestFeature
	node.threshold = bestThreshold
	node.left = c.growTree(X, y, w, leftIdx, depth+1, mtry, rng)
	node.right = c.growTree(X, y, w, rightIdx, depth+1, mtry, rng)
	return node
}

// bestSplitForFeature scans midpoints between sorted distinct values.
func bestSplitForFeature(X [][]float64, y []int, w []float64, idx []int, feat int, parentGini float64) (gain, threshold float64, ok bool) {
	order := make([]int, len(idx))
	copy(order, idx)
	sort.SliceStable(order, func(a, b int) bool { return X[order[a]][feat] < X[order[b]][feat] })

	posW, totW := weightedCounts(y, w, idx)

	leftPos, leftTot := 0.0, 0.0
	bestGain := 0.0
	bestThreshold := 0.0
	found := false

	for k := 0; k < len(order)-1; k++ {
		i := order[k]
		leftTot += w[i]
		if y[i] == 1 {
			leftPos += w[i]
		}
		cur, next := X[i][feat], X[order[k+1]][feat]
		if cur == next {
			continue
		}
		rightPos := posW - leftPos
		rightTot := totW - leftTot
		split := (leftTot*weightedGini(leftPos, leftTot) + rightTot*weightedGini(rightPos, rightTot)) / totW
		if g := parentGini - split; g > bestGain {
			bestGain = g
			bestThreshold = (cur + next) / 2
			found = true
		}
	}
	return bestGain, bestThreshold, found
}

func weightedCounts(y []int, w []float64, idx []int) (posW, totW float64) {
	for _, i := range idx {
		totW += w[i]
		if y[i] == 1 {
			posW += w[i]
		}
	}
	return posW, totW
}

func weightedGini(posW, totW float64) float64 {
	if totW == 0 {
		return 0
	}
	p := posW / totW
	return 2 * p * (1 - p)
}

func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func (n *treeNode) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.prob
}
