package ml

import (
	"encoding/json"
	"errors"
	"os"
)

// Model is a trained classifier. Predict takes a batch of rows, each of
// length FeatureCount, and returns one class index per row. Implementations
// are read-only after construction and safe for concurrent use.
type Model interface {
	Predict(batch [][]float64) ([]int, error)
}

const (
	ModelTypeAuto         = "auto"
	ModelTypeDecisionTree = "decision_tree"
	ModelTypeRandomForest = "random_forest"
)

// Artifact is the on-disk model envelope.
type Artifact struct {
	SchemaVersion string       `json:"schema_version"`
	ModelType     string       `json:"model_type"`
	FeatureNames  []string     `json:"feature_names"`
	Nodes         []TreeNode   `json:"nodes,omitempty"`
	Trees         [][]TreeNode `json:"trees,omitempty"`
}

// NewArtifact stamps the current schema onto a model payload.
func NewArtifact(modelType string) Artifact {
	return Artifact{
		SchemaVersion: FeatureSchemaVersion,
		ModelType:     modelType,
		FeatureNames:  FeatureSchema[:],
	}
}

func (a Artifact) Save(path string) error {
	if len(a.Nodes) == 0 && len(a.Trees) == 0 {
		return errors.New("artifact has no trees")
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}
