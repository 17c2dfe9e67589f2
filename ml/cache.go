package ml

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ResultCache memoizes prediction results. Entries are keyed by artifact
// digest and row values, so a reloaded model never serves stale results.
type ResultCache struct {
	cache *lru.Cache[string, Result]
}

// NewResultCache returns nil when size is not positive; a nil cache is valid
// and simply predicts every time.
func NewResultCache(size int) (*ResultCache, error) {
	if size <= 0 {
		return nil, nil
	}
	cache, err := lru.New[string, Result](size)
	if err != nil {
		return nil, err
	}
	return &ResultCache{cache: cache}, nil
}

func cacheKey(p *Predictor, row FeatureRow) string {
	return p.Artifact().Digest + "|" + row.Key()
}

// Predict returns the cached result for row if present, otherwise predicts and
// stores it. cached reports whether the result came from the cache.
func (c *ResultCache) Predict(ctx context.Context, p *Predictor, row FeatureRow) (result Result, cached bool, err error) {
	if c == nil {
		result, err = p.Predict(ctx, row)
		return result, false, err
	}
	key := cacheKey(p, row)
	if r, ok := c.cache.Get(key); ok && p.Schema().Matches(row.Columns) {
		return r, true, nil
	}
	result, err = p.Predict(ctx, row)
	if err != nil {
		return Result{}, false, err
	}
	c.cache.Add(key, result)
	return result, false, nil
}

func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

func (c *ResultCache) Purge() {
	if c == nil {
		return
	}
	c.cache.Purge()
}
