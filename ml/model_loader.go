package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultModelPath is the artifact read from the working directory when no
// other path is configured.
const DefaultModelPath = "best_ml.json"

var (
	ErrArtifactMissing = errors.New("model artifact not found")
	ErrArtifactCorrupt = errors.New("model artifact corrupt")
	ErrSchemaMismatch  = errors.New("model feature schema mismatch")
	ErrFeatureCount    = errors.New("feature vector length mismatch")
)

// LoadModel decodes an artifact payload. modelType may be ModelTypeAuto to
// take the type recorded in the artifact.
func LoadModel(modelType string, payload []byte) (Model, error) {
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}
	if err := checkSchema(artifact); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactCorrupt, err)
	}
	if modelType == "" || modelType == ModelTypeAuto {
		modelType = artifact.ModelType
	} else if artifact.ModelType != "" && artifact.ModelType != modelType {
		return nil, fmt.Errorf("%w: configured %s, artifact holds %s", ErrArtifactCorrupt, modelType, artifact.ModelType)
	}

	var (
		model Model
		err   error
	)
	switch modelType {
	case ModelTypeDecisionTree:
		model, err = NewDecisionTree(artifact.Nodes)
	case ModelTypeRandomForest:
		model, err = NewRandomForest(artifact.Trees)
	default:
		return nil, fmt.Errorf("%w: unsupported model type %q", ErrArtifactCorrupt, modelType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}
	return model, nil
}

func checkSchema(artifact Artifact) error {
	if artifact.SchemaVersion != FeatureSchemaVersion {
		return fmt.Errorf("%w: artifact version %q, encoder version %q", ErrSchemaMismatch, artifact.SchemaVersion, FeatureSchemaVersion)
	}
	if len(artifact.FeatureNames) != FeatureCount {
		return fmt.Errorf("%w: artifact has %d features, encoder has %d", ErrSchemaMismatch, len(artifact.FeatureNames), FeatureCount)
	}
	for i, name := range artifact.FeatureNames {
		if name != FeatureSchema[i] {
			return fmt.Errorf("%w: position %d is %q, encoder expects %q", ErrSchemaMismatch, i, name, FeatureSchema[i])
		}
	}
	return nil
}

// Loader reads the model artifact once per process. Later calls return the
// same Model (or the same error) without touching storage. A changed file
// on disk takes effect only after a restart.
type Loader struct {
	path      string
	modelType string
	readFile  func(string) ([]byte, error)
	logger    *zap.Logger

	once  sync.Once
	model Model
	err   error
}

type LoaderOption func(*Loader)

// WithReadFile replaces os.ReadFile.
func WithReadFile(fn func(string) ([]byte, error)) LoaderOption {
	return func(l *Loader) { l.readFile = fn }
}

func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

func NewLoader(path, modelType string, opts ...LoaderOption) *Loader {
	if path == "" {
		path = DefaultModelPath
	}
	l := &Loader{
		path:      path,
		modelType: modelType,
		readFile:  os.ReadFile,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) Path() string {
	return l.path
}

func (l *Loader) Load() (Model, error) {
	l.once.Do(func() {
		start := time.Now()
		l.model, l.err = l.load()
		if l.err != nil {
			l.logger.Error("model load failed", zap.String("path", l.path), zap.Error(l.err))
			return
		}
		l.logger.Info("model loaded",
			zap.String("path", l.path),
			zap.String("schema", FeatureSchemaVersion),
			zap.Duration("took", time.Since(start)))
	})
	return l.model, l.err
}

func (l *Loader) load() (Model, error) {
	payload, err := l.readFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, l.path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrArtifactCorrupt, l.path, err)
	}
	return LoadModel(l.modelType, payload)
}
