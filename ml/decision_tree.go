package ml

import (
	"errors"
	"fmt"
)

type DecisionTree struct {
	nodes []TreeNode
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	IsLeaf     bool    `json:"is_leaf"`
}

// NewDecisionTree checks that every split points at a valid feature and
// every child index stays inside the node array.
func NewDecisionTree(nodes []TreeNode) (*DecisionTree, error) {
	if len(nodes) == 0 {
		return nil, errors.New("tree has no nodes")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= FeatureCount {
			return nil, fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) {
			return nil, fmt.Errorf("node %d: invalid left child %d", i, node.LeftChild)
		}
		if node.RightChild <= i || node.RightChild >= len(nodes) {
			return nil, fmt.Errorf("node %d: invalid right child %d", i, node.RightChild)
		}
	}
	return &DecisionTree{nodes: nodes}, nil
}

func (dt *DecisionTree) Predict(batch [][]float64) ([]int, error) {
	out := make([]int, len(batch))
	for i, row := range batch {
		label, err := dt.predictRow(row)
		if err != nil {
			return nil, err
		}
		out[i] = label
	}
	return out, nil
}

func (dt *DecisionTree) predictRow(features []float64) (int, error) {
	if len(features) != FeatureCount {
		return 0, fmt.Errorf("%w: got %d", ErrFeatureCount, len(features))
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, nil
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

// RandomForest votes across its trees. Ties go to the lowest class.
type RandomForest struct {
	trees []*DecisionTree
}

func NewRandomForest(trees [][]TreeNode) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	rf := &RandomForest{trees: make([]*DecisionTree, 0, len(trees))}
	for i, nodes := range trees {
		tree, err := NewDecisionTree(nodes)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		rf.trees = append(rf.trees, tree)
	}
	return rf, nil
}

func (rf *RandomForest) Predict(batch [][]float64) ([]int, error) {
	out := make([]int, len(batch))
	for i, row := range batch {
		votes := make(map[int]int)
		for _, tree := range rf.trees {
			label, err := tree.predictRow(row)
			if err != nil {
				return nil, err
			}
			votes[label]++
		}
		out[i] = majorityVote(votes)
	}
	return out, nil
}

func majorityVote(votes map[int]int) int {
	bestLabel := 0
	bestCount := -1
	for label, count := range votes {
		if count > bestCount || (count == bestCount && label < bestLabel) {
			bestCount = count
			bestLabel = label
		}
	}
	return bestLabel
}
