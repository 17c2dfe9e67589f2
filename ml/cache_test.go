package ml

import (
	"context"
	"testing"
)

func TestResultCacheHitsOnEqualRows(t *testing.T) {
	p := newTestPredictor(t)
	cache, err := NewResultCache(8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	row, err := p.BuildRow(AnswerSet{"BMI": 31.2, "HighBP": "Yes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, cached, err := cache.Predict(ctx, p, row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cached {
		t.Fatal("first prediction should not be cached")
	}

	same, err := p.BuildRow(AnswerSet{"HighBP": 1, "BMI": "31.2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, cached, err := cache.Predict(ctx, p, same)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cached {
		t.Fatal("equal row should hit the cache")
	}
	if second.Label != first.Label || *second.Probability != *first.Probability {
		t.Fatalf("cached result %+v differs from %+v", second, first)
	}
	if cache.Len() != 1 {
		t.Fatalf("cache len = %d, want 1", cache.Len())
	}
}

func TestResultCacheKeysOnDigest(t *testing.T) {
	p := newTestPredictor(t)
	p.Artifact().Digest = "aaa"
	other := newTestPredictor(t)
	other.Artifact().Digest = "bbb"

	cache, err := NewResultCache(8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row, _ := p.BuildRow(nil)
	if _, _, err := cache.Predict(context.Background(), p, row); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, cached, _ := cache.Predict(context.Background(), other, row); cached {
		t.Fatal("a different artifact must not share cache entries")
	}
}

func TestNilResultCachePredicts(t *testing.T) {
	cache, err := NewResultCache(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache != nil {
		t.Fatal("size 0 should disable the cache")
	}
	p := newTestPredictor(t)
	row, _ := p.BuildRow(nil)
	if _, cached, err := cache.Predict(context.Background(), p, row); err != nil || cached {
		t.Fatalf("cached=%v err=%v", cached, err)
	}
	if cache.Len() != 0 {
		t.Fatal("nil cache should report zero length")
	}
}

func TestResultCachePurge(t *testing.T) {
	p := newTestPredictor(t)
	cache, err := NewResultCache(8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row, _ := p.BuildRow(AnswerSet{"BMI": 40})
	if _, _, err := cache.Predict(context.Background(), p, row); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache.Purge()
	if cache.Len() != 0 {
		t.Fatalf("cache len after purge = %d", cache.Len())
	}
	if _, cached, _ := cache.Predict(context.Background(), p, row); cached {
		t.Error("row served from a purged cache")
	}

	var disabled *ResultCache
	disabled.Purge()
}
