package ml

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cachedResult struct {
	label      int
	confidence float64
}

// PredictionCache memoizes classifier results behind a bounded LRU.
// Inference is deterministic and the model never changes while serving,
// so repeated feature vectors can skip the tree walk. It implements
// Classifier and wraps the real model.
type PredictionCache struct {
	model Classifier
	cache *lru.Cache[string, cachedResult]
}

func NewPredictionCache(model Classifier, size int) (*PredictionCache, error) {
	cache, err := lru.New[string, cachedResult](size)
	if err != nil {
		return nil, err
	}
	return &PredictionCache{model: model, cache: cache}, nil
}

func (c *PredictionCache) Predict(features []float64) (int, float64, error) {
	key := cacheKey(features)
	if hit, ok := c.cache.Get(key); ok {
		return hit.label, hit.confidence, nil
	}

	label, confidence, err := c.model.Predict(features)
	if err != nil {
		return 0, 0, err
	}
	c.cache.Add(key, cachedResult{label: label, confidence: confidence})
	return label, confidence, nil
}

// Len reports how many results are currently cached.
func (c *PredictionCache) Len() int {
	return c.cache.Len()
}

func cacheKey(features []float64) string {
	var b strings.Builder
	for i, f := range features {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return b.String()
}
