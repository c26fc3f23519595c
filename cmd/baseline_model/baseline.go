package main

import "mobileprice/ml"

// BaselineArtifact is a small hand-built tree over RAM and battery power.
// It lets the service start before a trained artifact is exported.
func BaselineArtifact() ml.Artifact {
	ram := index(ml.FeatureRAMMB)
	battery := index(ml.FeatureBatteryPower)

	artifact := ml.NewArtifact(ml.ModelTypeDecisionTree)
	artifact.Nodes = []ml.TreeNode{
		{FeatureIdx: ram, Threshold: 1050, LeftChild: 1, RightChild: 2},
		{IsLeaf: true, ClassLabel: int(ml.LowCost)},
		{FeatureIdx: ram, Threshold: 2100, LeftChild: 3, RightChild: 4},
		{FeatureIdx: battery, Threshold: 1000, LeftChild: 5, RightChild: 6},
		{FeatureIdx: ram, Threshold: 3000, LeftChild: 7, RightChild: 8},
		{IsLeaf: true, ClassLabel: int(ml.LowCost)},
		{IsLeaf: true, ClassLabel: int(ml.MediumCost)},
		{FeatureIdx: battery, Threshold: 1100, LeftChild: 9, RightChild: 10},
		{IsLeaf: true, ClassLabel: int(ml.VeryHighCost)},
		{IsLeaf: true, ClassLabel: int(ml.MediumCost)},
		{IsLeaf: true, ClassLabel: int(ml.HighCost)},
	}
	return artifact
}

func index(feature string) int {
	for i, name := range ml.FeatureSchema {
		if name == feature {
			return i
		}
	}
	panic("unknown feature " + feature)
}
