package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsScrape(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObservePrediction("Team 1", 3*time.Millisecond)
	metrics.ObserveRequest(http.MethodPost, "/predict", "200", 5*time.Millisecond)

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `matchcast_predictions_total{winner="Team 1"} 1`) {
		t.Fatalf("prediction counter missing from scrape:\n%s", body)
	}
	if !strings.Contains(body, "matchcast_http_requests_total") {
		t.Fatal("request counter missing from scrape")
	}
}
