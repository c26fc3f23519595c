package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"mobileprice/db"
	"mobileprice/ml"
	"mobileprice/monitoring"
)

type fakePredictor struct {
	class ml.PriceRange
	err   error
	calls int
	last  ml.RawInputs
}

func (f *fakePredictor) PredictRaw(raw ml.RawInputs) (ml.Prediction, error) {
	f.calls++
	f.last = raw
	if f.err != nil {
		return ml.Prediction{}, f.err
	}
	return ml.Prediction{Class: f.class, Label: f.class.Label(), Features: ml.Encode(raw)}, nil
}

type memoryStore struct {
	saved []ml.Prediction
}

func (m *memoryStore) SavePrediction(p ml.Prediction) (int64, error) {
	m.saved = append(m.saved, p)
	return int64(len(m.saved)), nil
}

func (m *memoryStore) RecentPredictions(limit int) ([]db.PredictionRecord, error) {
	out := make([]db.PredictionRecord, 0, limit)
	for i := len(m.saved) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, db.PredictionRecord{ID: int64(i + 1), Class: int(m.saved[i].Class), Label: m.saved[i].Label})
	}
	return out, nil
}

func (m *memoryStore) CountByLabel() (map[string]int, error) {
	counts := make(map[string]int)
	for _, p := range m.saved {
		counts[p.Label]++
	}
	return counts, nil
}

type recordingFeed struct {
	events []any
}

func (r *recordingFeed) Publish(kind monitoring.MessageType, data any) {
	r.events = append(r.events, data)
}

func newTestMux(p Predictor, store PredictionStore, feed Publisher) *http.ServeMux {
	mux := http.NewServeMux()
	RegisterHandlers(mux, NewHandlers(p, store, feed, nil), nil)
	return mux
}

func TestHandlePredict(t *testing.T) {
	predictor := &fakePredictor{class: ml.HighCost}
	store := &memoryStore{}
	feed := &recordingFeed{}
	mux := newTestMux(predictor, store, feed)

	body := `{"battery_power":1200,"ram_mb":2048,"pixel_width":1280,"pixel_height":720,
		"mobile_weight_g":140,"internal_memory_gb":32,"screen_height_cm":15,"screen_width_cm":7,
		"talk_time_hours":10,"core_count":4,"clock_speed":2.0,"mobile_depth_cm":0.5,
		"front_camera_mp":5,"primary_camera_mp":16,"four_g":"Yes","three_g":"Yes",
		"dual_sim":"Yes","touch_screen":"Yes","wifi":"Yes","bluetooth":"Yes"}`
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var payload struct {
		Class    int       `json:"class"`
		Label    string    `json:"label"`
		Features []float64 `json:"features"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload.Class != 2 || payload.Label != "High Cost ($$$)" {
		t.Fatalf("unexpected prediction: %+v", payload)
	}
	want := []float64{1200, 1, 2.0, 1, 5, 1, 32, 0.5, 140, 4, 16, 720, 1280, 2048, 15, 7, 10, 1, 1, 1}
	if len(payload.Features) != len(want) {
		t.Fatalf("expected %d features, got %d", len(want), len(payload.Features))
	}
	for i := range want {
		if payload.Features[i] != want[i] {
			t.Fatalf("feature %d (%s): expected %v, got %v", i, ml.FeatureSchema[i], want[i], payload.Features[i])
		}
	}
	if len(store.saved) != 1 || len(feed.events) != 1 {
		t.Fatalf("expected one saved prediction and one feed event, got %d and %d", len(store.saved), len(feed.events))
	}
}

func TestHandlePredictDefaultsMissingFields(t *testing.T) {
	predictor := &fakePredictor{class: ml.LowCost}
	mux := newTestMux(predictor, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"ram_mb":512,"wifi":"No"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	want := ml.DefaultRawInputs()
	want.RAMMB = 512
	want.Wifi = ml.No
	if predictor.last != want {
		t.Fatalf("unexpected inputs: %+v", predictor.last)
	}
}

func TestHandlePredictRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"out of range":  `{"battery_power":5000}`,
		"bad choice":    `{"wifi":"maybe"}`,
		"unknown field": `{"price_range":3}`,
		"not json":      `battery_power=1200`,
		"bad memory":    `{"internal_memory_gb":33}`,
		"off step":      `{"clock_speed":2.05}`,
		"depth step":    `{"mobile_depth_cm":0.137}`,
	}
	for name, body := range cases {
		predictor := &fakePredictor{class: ml.LowCost}
		mux := newTestMux(predictor, nil, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, w.Code)
		}
		if predictor.calls != 0 {
			t.Errorf("%s: model must not be called for invalid input", name)
		}
	}
}

func TestHandlePredictModelFailure(t *testing.T) {
	store := &memoryStore{}
	mux := newTestMux(&fakePredictor{err: errors.New("boom")}, store, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if len(store.saved) != 0 {
		t.Fatal("failed prediction must not be recorded")
	}
}

func TestHandlePredictMethodNotAllowed(t *testing.T) {
	mux := newTestMux(&fakePredictor{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/predict", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestFormSubmit(t *testing.T) {
	predictor := &fakePredictor{class: ml.VeryHighCost}
	mux := newTestMux(predictor, nil, nil)

	form := url.Values{}
	form.Set(ml.FeatureRAMMB, "8192")
	form.Set(ml.FeatureFourG, "No")
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Predicted Price Range: Very High Cost ($$$$)") {
		t.Fatalf("missing result in page: %s", body)
	}
	if !strings.Contains(body, "8,192 MB") {
		t.Fatalf("expected grouped RAM in summary")
	}
	if predictor.last.RAMMB != 8192 || predictor.last.FourG != ml.No || predictor.last.Wifi != ml.Yes {
		t.Fatalf("unexpected inputs: %+v", predictor.last)
	}
}

func TestFormSubmitInvalidChoice(t *testing.T) {
	predictor := &fakePredictor{class: ml.LowCost}
	mux := newTestMux(predictor, nil, nil)

	form := url.Values{}
	form.Set(ml.FeatureWifi, "Sometimes")
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "Predicted Price Range") {
		t.Fatal("no result may be shown for rejected input")
	}
	if predictor.calls != 0 {
		t.Fatal("model must not be called")
	}
}

func TestFormSubmitUnparseableRecordsError(t *testing.T) {
	predictor := &fakePredictor{class: ml.LowCost}
	mux := newTestMux(predictor, nil, nil)
	before := validationErrors(t)

	form := url.Values{}
	form.Set(ml.FeatureRAMMB, "lots")
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if predictor.calls != 0 {
		t.Fatal("model must not be called")
	}
	if got := validationErrors(t); got != before+1 {
		t.Fatalf("expected validation error count %v, got %v", before+1, got)
	}
}

// validationErrors reads the validation error counter from the metrics endpoint.
func validationErrors(t *testing.T) float64 {
	t.Helper()
	w := httptest.NewRecorder()
	monitoring.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	prefix := `mobileprice_prediction_errors_total{reason="validation"} `
	for _, line := range strings.Split(w.Body.String(), "\n") {
		if strings.HasPrefix(line, prefix) {
			v, err := strconv.ParseFloat(strings.TrimPrefix(line, prefix), 64)
			if err != nil {
				t.Fatalf("parse metric: %v", err)
			}
			return v
		}
	}
	return 0
}

func TestFormPageDefaults(t *testing.T) {
	mux := newTestMux(&fakePredictor{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`name="battery_power"`, `value="1200"`, `name="bluetooth"`, "Predict Price Range"} {
		if !strings.Contains(body, want) {
			t.Errorf("form page missing %q", want)
		}
	}
}

func TestHandlePredictions(t *testing.T) {
	store := &memoryStore{}
	mux := newTestMux(&fakePredictor{class: ml.MediumCost}, store, nil)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{}`))
		mux.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/predictions?limit=2", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload struct {
		Data    []db.PredictionRecord `json:"data"`
		Summary map[string]int        `json:"summary"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(payload.Data) != 2 || payload.Data[0].Label != "Medium Cost ($$)" {
		t.Fatalf("unexpected history: %+v", payload.Data)
	}
	if len(payload.Summary) != 1 || payload.Summary["Medium Cost ($$)"] != 3 {
		t.Fatalf("unexpected summary: %v", payload.Summary)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/predictions?limit=abc", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
