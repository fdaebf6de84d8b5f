package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"matchcast/db"
)

type fakeModel struct {
	label      int
	confidence float64
	err        error
}

func (f *fakeModel) Predict(features []float64) (int, float64, error) {
	return f.label, f.confidence, f.err
}

func newTestHandlers(t *testing.T, model *fakeModel) (*Handlers, *http.ServeMux) {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	handlers := &Handlers{
		Store:  store,
		Model:  model,
		Logger: zap.NewNop(),
	}
	mux := http.NewServeMux()
	handlers.Register(mux)
	return handlers, mux
}

func rowCount(t *testing.T, store *db.Store) int {
	t.Helper()
	all, err := store.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	return len(all)
}

func TestPredictPipeline(t *testing.T) {
	handlers, mux := newTestHandlers(t, &fakeModel{label: 1, confidence: 0.8})

	body := `{"team1_strength": 8, "team2_strength": 5, "weather_condition": 1}`
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var payload map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["predicted_winner"] != "Team 1" {
		t.Fatalf("unexpected winner: %q", payload["predicted_winner"])
	}

	all, err := handlers.Store.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly 1 record, got %d", len(all))
	}
	rec := all[0]
	if rec.Team1Strength != 8 || rec.Team2Strength != 5 || rec.WeatherCondition != 1 || rec.PredictedWinner != "Team 1" {
		t.Fatalf("stored record does not match request: %+v", rec)
	}
	if rec.ID <= 0 {
		t.Fatalf("expected assigned id, got %d", rec.ID)
	}
}

func TestPredictMapsLabelZeroToTeam2(t *testing.T) {
	_, mux := newTestHandlers(t, &fakeModel{label: 0, confidence: 0.7})

	body := `{"team1_strength": 4, "team2_strength": 9, "weather_condition": 0}`
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["predicted_winner"] != "Team 2" {
		t.Fatalf("unexpected winner: %q", payload["predicted_winner"])
	}
}

func TestPredictValidationFailureHasNoSideEffects(t *testing.T) {
	handlers, mux := newTestHandlers(t, &fakeModel{label: 1})

	cases := []string{
		`{"team1_strength": 8, "team2_strength": 5}`,
		`{"team1_strength": "high", "team2_strength": 5, "weather_condition": 1}`,
		`{`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("body %s: expected 422, got %d", body, w.Code)
		}
		var payload map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if payload["error"] == "" {
			t.Fatal("expected a descriptive error message")
		}
	}

	if n := rowCount(t, handlers.Store); n != 0 {
		t.Fatalf("invalid input wrote %d records", n)
	}
}

func TestPredictInferenceFailureIsServerError(t *testing.T) {
	handlers, mux := newTestHandlers(t, &fakeModel{err: errors.New("boom")})

	body := `{"team1_strength": 8, "team2_strength": 5, "weather_condition": 1}`
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if n := rowCount(t, handlers.Store); n != 0 {
		t.Fatalf("failed inference wrote %d records", n)
	}
}

func TestListPredictions(t *testing.T) {
	handlers, mux := newTestHandlers(t, &fakeModel{label: 1})

	req := httptest.NewRequest(http.MethodGet, "/predictions", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Fatalf("expected empty array, got %s", got)
	}

	if _, err := handlers.Store.Insert(context.Background(), db.Prediction{
		Team1Strength: 8, Team2Strength: 5, WeatherCondition: 1, PredictedWinner: "Team 1",
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/predictions", nil))

	var records []db.Prediction
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(records) != 1 || records[0].PredictedWinner != "Team 1" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestDeletePrediction(t *testing.T) {
	handlers, mux := newTestHandlers(t, &fakeModel{label: 1})

	rec, err := handlers.Store.Insert(context.Background(), db.Prediction{PredictedWinner: "Team 1"})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/predictions/%d", rec.ID), nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var payload map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["message"] == "" {
		t.Fatal("expected a delete confirmation message")
	}

	all, err := handlers.Store.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, p := range all {
		if p.ID == rec.ID {
			t.Fatal("record still present after delete")
		}
	}
}

func TestDeleteMissingPrediction(t *testing.T) {
	handlers, mux := newTestHandlers(t, &fakeModel{label: 1})

	if _, err := handlers.Store.Insert(context.Background(), db.Prediction{PredictedWinner: "Team 2"}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	before := rowCount(t, handlers.Store)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/predictions/999999", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if after := rowCount(t, handlers.Store); after != before {
		t.Fatalf("failed delete changed row count: %d -> %d", before, after)
	}
}

func TestDeleteNonNumericID(t *testing.T) {
	_, mux := newTestHandlers(t, &fakeModel{label: 1})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/predictions/abc", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	handlers, mux := newTestHandlers(t, &fakeModel{label: 1})
	handlers.ModelStale = func() bool { return true }

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
	if payload["model_stale"] != true {
		t.Fatalf("expected model_stale true, got %v", payload["model_stale"])
	}
}
