package ml

import (
	"testing"
)

// ramTree splits on ram_mb then battery_power.
func ramTree() []TreeNode {
	ram := 13
	battery := 0
	return []TreeNode{
		{FeatureIdx: ram, Threshold: 1024, LeftChild: 1, RightChild: 2},
		{IsLeaf: true, ClassLabel: 0, FeatureIdx: -1, LeftChild: -1, RightChild: -1},
		{FeatureIdx: battery, Threshold: 1500, LeftChild: 3, RightChild: 4},
		{IsLeaf: true, ClassLabel: 2, FeatureIdx: -1, LeftChild: -1, RightChild: -1},
		{IsLeaf: true, ClassLabel: 3, FeatureIdx: -1, LeftChild: -1, RightChild: -1},
	}
}

func leaf(class int) []TreeNode {
	return []TreeNode{{IsLeaf: true, ClassLabel: class, FeatureIdx: -1, LeftChild: -1, RightChild: -1}}
}

func TestDecisionTreePredict(t *testing.T) {
	tree, err := NewDecisionTree(ramTree())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lowRAM := DefaultRawInputs()
	lowRAM.RAMMB = 512
	bigBattery := DefaultRawInputs()
	bigBattery.BatteryPower = 1900

	labels, err := tree.Predict([][]float64{
		Encode(lowRAM).Slice(),
		Encode(DefaultRawInputs()).Slice(),
		Encode(bigBattery).Slice(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{0, 2, 3}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("row %d: expected label %d, got %d", i, want[i], labels[i])
		}
	}
}

func TestDecisionTreeRejectsShortRow(t *testing.T) {
	tree, err := NewDecisionTree(ramTree())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tree.Predict([][]float64{{1, 2, 3}}); err == nil {
		t.Fatal("expected feature count error")
	}
}

func TestNewDecisionTreeValidatesNodes(t *testing.T) {
	cases := map[string][]TreeNode{
		"empty":         nil,
		"bad feature":   {{FeatureIdx: FeatureCount, LeftChild: 1, RightChild: 2}, leaf(0)[0], leaf(1)[0]},
		"child too far": {{FeatureIdx: 0, LeftChild: 1, RightChild: 9}, leaf(0)[0], leaf(1)[0]},
		"backward edge": {{FeatureIdx: 0, LeftChild: 0, RightChild: 2}, leaf(0)[0], leaf(1)[0]},
	}
	for name, nodes := range cases {
		if _, err := NewDecisionTree(nodes); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRandomForestMajority(t *testing.T) {
	forest, err := NewRandomForest([][]TreeNode{leaf(1), leaf(2), leaf(2), ramTree()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lowRAM := DefaultRawInputs()
	lowRAM.RAMMB = 512
	labels, err := forest.Predict([][]float64{Encode(lowRAM).Slice()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if labels[0] != 2 {
		t.Fatalf("expected label 2, got %d", labels[0])
	}
}

func TestRandomForestTieGoesLow(t *testing.T) {
	forest, err := NewRandomForest([][]TreeNode{leaf(3), leaf(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	labels, err := forest.Predict([][]float64{Encode(DefaultRawInputs()).Slice()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if labels[0] != 1 {
		t.Fatalf("expected tie to resolve to 1, got %d", labels[0])
	}
}
