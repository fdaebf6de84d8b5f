package ml

import (
	"errors"
	"testing"
)

type countingModel struct {
	calls int
	label int
	err   error
}

func (m *countingModel) Predict(features []float64) (int, float64, error) {
	m.calls++
	return m.label, 0.9, m.err
}

func TestPredictionCacheHit(t *testing.T) {
	model := &countingModel{label: 1}
	cache, err := NewPredictionCache(model, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vector := []float64{8, 5, 1}
	for i := 0; i < 3; i++ {
		label, confidence, err := cache.Predict(vector)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if label != 1 || confidence != 0.9 {
			t.Fatalf("unexpected result: %d %f", label, confidence)
		}
	}
	if model.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", model.calls)
	}

	// A different vector misses.
	if _, _, err := cache.Predict([]float64{5, 8, 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.calls != 2 {
		t.Fatalf("expected 2 model calls, got %d", model.calls)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 cached entries, got %d", cache.Len())
	}
}

func TestPredictionCacheDoesNotCacheErrors(t *testing.T) {
	model := &countingModel{err: errors.New("boom")}
	cache, err := NewPredictionCache(model, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, _, err := cache.Predict([]float64{1, 2, 3}); err == nil {
			t.Fatal("expected error")
		}
	}
	if model.calls != 2 {
		t.Fatalf("expected errors to bypass the cache, got %d calls", model.calls)
	}
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", cache.Len())
	}
}

func TestCacheKeyDistinguishesVectors(t *testing.T) {
	if cacheKey([]float64{1, 23}) == cacheKey([]float64{12, 3}) {
		t.Fatal("cache key collision between distinct vectors")
	}
}
