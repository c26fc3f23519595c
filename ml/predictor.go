package ml

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Predict submits features as a one-row batch and returns the first class.
func Predict(model Model, features FeatureVector) (PriceRange, error) {
	if model == nil {
		return 0, errors.New("model not loaded")
	}
	classes, err := model.Predict([][]float64{features.Slice()})
	if err != nil {
		return 0, err
	}
	if len(classes) == 0 {
		return 0, errors.New("model returned no prediction")
	}
	return PriceRange(classes[0]), nil
}

type Prediction struct {
	Class    PriceRange    `json:"class"`
	Label    string        `json:"label"`
	Features FeatureVector `json:"features"`
	Cached   bool          `json:"-"`
}

// Predictor runs encode, predict and label mapping for one request.
// Results are memoized per FeatureVector since the model is immutable.
type Predictor struct {
	model  Model
	cache  *lru.Cache[FeatureVector, PriceRange]
	logger *zap.Logger
}

// NewPredictor wraps a loaded model. cacheSize <= 0 disables memoization.
func NewPredictor(model Model, cacheSize int, logger *zap.Logger) (*Predictor, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Predictor{model: model, logger: logger}
	if cacheSize > 0 {
		cache, err := lru.New[FeatureVector, PriceRange](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("prediction cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

func (p *Predictor) PredictRaw(raw RawInputs) (Prediction, error) {
	return p.Predict(Encode(raw))
}

func (p *Predictor) Predict(features FeatureVector) (Prediction, error) {
	if p.cache != nil {
		if class, ok := p.cache.Get(features); ok {
			return Prediction{Class: class, Label: class.Label(), Features: features, Cached: true}, nil
		}
	}
	class, err := Predict(p.model, features)
	if err != nil {
		return Prediction{}, err
	}
	if !class.Known() {
		// Usually means the artifact and FeatureSchema disagree.
		p.logger.Warn("model returned unknown class",
			zap.Int("class", int(class)),
			zap.String("schema", FeatureSchemaVersion))
	}
	if p.cache != nil {
		p.cache.Add(features, class)
	}
	return Prediction{Class: class, Label: class.Label(), Features: features}, nil
}
