package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"mobileprice/db"
	"mobileprice/ml"
	"mobileprice/monitoring"

	"go.uber.org/zap"
)

type Predictor interface {
	PredictRaw(raw ml.RawInputs) (ml.Prediction, error)
}

type PredictionStore interface {
	SavePrediction(p ml.Prediction) (int64, error)
	RecentPredictions(limit int) ([]db.PredictionRecord, error)
	CountByLabel() (map[string]int, error)
}

type Publisher interface {
	Publish(kind monitoring.MessageType, data any)
}

// Handlers serves the form and JSON API. Store and Feed are optional.
type Handlers struct {
	predictor Predictor
	store     PredictionStore
	feed      Publisher
	logger    *zap.Logger
}

func NewHandlers(predictor Predictor, store PredictionStore, feed Publisher, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{predictor: predictor, store: store, feed: feed, logger: logger}
}

func RegisterHandlers(mux *http.ServeMux, h *Handlers, limiter *RateLimiter) {
	limited := RateLimitMiddleware(limiter)

	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/schema", handleSchema)
	mux.HandleFunc("GET /api/predictions", h.handlePredictions)
	mux.Handle("POST /api/predict", limited(http.HandlerFunc(h.handlePredict)))
	mux.HandleFunc("GET /{$}", h.handleForm)
	mux.Handle("POST /{$}", limited(http.HandlerFunc(h.handleFormSubmit)))
}

type predictResponse struct {
	Class    int              `json:"class"`
	Label    string           `json:"label"`
	Features ml.FeatureVector `json:"features"`
}

// predict validates, then runs encode, predict and label mapping as one
// synchronous step. Nothing is recorded unless the whole step succeeds.
func (h *Handlers) predict(raw ml.RawInputs) (ml.Prediction, error) {
	if err := raw.Validate(); err != nil {
		monitoring.RecordPredictionError("validation")
		return ml.Prediction{}, err
	}
	start := time.Now()
	p, err := h.predictor.PredictRaw(raw)
	if err != nil {
		monitoring.RecordPredictionError("model")
		h.logger.Error("prediction failed", zap.Error(err))
		return ml.Prediction{}, err
	}
	monitoring.RecordPrediction(p.Label, p.Cached, time.Since(start))

	if h.store != nil {
		if _, err := h.store.SavePrediction(p); err != nil {
			h.logger.Warn("save prediction failed", zap.Error(err))
		}
	}
	if h.feed != nil {
		h.feed.Publish(monitoring.PredictionEvent, predictResponse{Class: int(p.Class), Label: p.Label, Features: p.Features})
	}
	return p, nil
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	raw := ml.DefaultRawInputs()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		monitoring.RecordPredictionError("validation")
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p, err := h.predict(raw)
	if err != nil {
		var verr *ml.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{Class: int(p.Class), Label: p.Label, Features: p.Features})
}

func (h *Handlers) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "prediction history disabled")
		return
	}
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	records, err := h.store.RecentPredictions(limit)
	if err != nil {
		h.logger.Error("load prediction history failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	summary, err := h.store.CountByLabel()
	if err != nil {
		h.logger.Error("count prediction history failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": records, "summary": summary})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"schema_version": ml.FeatureSchemaVersion,
		"features":       ml.FeatureSchema,
		"fields":         ml.Domains(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
