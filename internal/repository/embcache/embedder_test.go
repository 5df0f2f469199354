package embcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &textEmbedder{}
	ce, kv := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	first, err := ce.Embed(ctx, "orders")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 2 || first.Embedding[0] != 6 {
		t.Fatalf("unexpected miss result: %+v", first)
	}
	if len(kv.data) != 1 {
		t.Fatalf("expected one cached entry, got %d", len(kv.data))
	}
	for k, ttl := range kv.ttls {
		if !strings.HasPrefix(k, KeyPrefix+"test-model:") {
			t.Errorf("key %q lacks model prefix", k)
		}
		if ttl != time.Hour {
			t.Errorf("ttl = %v, want 1h", ttl)
		}
	}

	second, err := ce.Embed(ctx, "orders")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.TotalTokens != 0 {
		t.Errorf("cache hit must report zero tokens, got %d", second.TotalTokens)
	}
	if second.Embedding[0] != 6 {
		t.Errorf("cached vector = %v", second.Embedding)
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}
}

func TestEmbed_KeysAreModelScoped(t *testing.T) {
	kv := newMemKV()
	a := New(&textEmbedder{}, kv, "model-a", 0, nil, zap.NewNop())
	b := New(&textEmbedder{}, kv, "model-b", 0, nil, zap.NewNop())
	if a.cacheKey("x") == b.cacheKey("x") {
		t.Fatal("different models must not share cache keys")
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &textEmbedder{err: errors.New("provider down")}
	ce, kv := newTestCachedEmbedder(t, inner)

	if _, err := ce.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if len(kv.setKeys) != 0 {
		t.Error("failed embedding must not be cached")
	}
}

func TestEmbed_StoreFailuresDegrade(t *testing.T) {
	inner := &textEmbedder{}
	ce, kv := newTestCachedEmbedder(t, inner)
	kv.getErr = errors.New("connection refused")
	kv.setErr = errors.New("connection refused")

	res, err := ce.Embed(context.Background(), "abc")
	if err != nil {
		t.Fatalf("cache outage must not fail embedding: %v", err)
	}
	if res.Embedding[0] != 3 {
		t.Errorf("unexpected vector %v", res.Embedding)
	}
}

func TestEmbed_CorruptEntryIsMiss(t *testing.T) {
	inner := &textEmbedder{}
	ce, kv := newTestCachedEmbedder(t, inner)
	kv.data[ce.cacheKey("abc")] = []byte{1, 2, 3}

	res, err := ce.Embed(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 || res.TotalTokens != 2 {
		t.Error("corrupt entry should fall through to the provider")
	}
}

func TestBatchEmbed_OnlyMissesReachProvider(t *testing.T) {
	inner := &textEmbedder{}
	ce, _ := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	if _, err := ce.Embed(ctx, "bb"); err != nil {
		t.Fatalf("warm: %v", err)
	}

	res, err := ce.BatchEmbed(ctx, []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 1 || len(inner.batched[0]) != 2 {
		t.Fatalf("batched = %v, want [a ccc]", inner.batched)
	}
	want := []float32{1, 2, 3}
	for i, w := range want {
		if res.Embeddings[i][0] != w {
			t.Errorf("embedding[%d] = %v, want %v", i, res.Embeddings[i], w)
		}
	}
	if res.TotalTokens != 4 {
		t.Errorf("TotalTokens = %d, want 4", res.TotalTokens)
	}

	again, err := ce.BatchEmbed(ctx, []string{"a", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 1 || again.TotalTokens != 0 {
		t.Error("fully cached batch must not call the provider")
	}
}

func TestBatchEmbed_Error(t *testing.T) {
	inner := &textEmbedder{err: errors.New("rate limited")}
	ce, _ := newTestCachedEmbedder(t, inner)
	if _, err := ce.BatchEmbed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestCacheCounter(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	ce := New(&textEmbedder{}, newMemKV(), "m", 0, counter, zap.NewNop())
	ctx := context.Background()

	_, _ = ce.Embed(ctx, "x")
	_, _ = ce.Embed(ctx, "x")
	_, _ = ce.Embed(ctx, "x")

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss = %v, want 1", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 2 {
		t.Errorf("hit = %v, want 2", got)
	}
}

func TestVectorCodec(t *testing.T) {
	in := []float32{0.5, -1.25, 3}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("got %v, want %v", out, in)
		}
	}
	if _, err := decodeVector([]byte{1}); err == nil {
		t.Error("expected error for odd length")
	}
}
