package collect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(cache Cache) *Gateway {
	return NewGateway(Config{
		MaxRetries:  3,
		RetryDelay:  time.Millisecond,
		PerHostRate: 1000,
	}, cache)
}

func TestCollectFromAPI_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "acme", r.URL.Query().Get("q"))
		w.Write([]byte(`{"name":"Acme Corporation"}`))
	}))
	defer srv.Close()

	g := newTestGateway(nil)
	res := g.CollectFromAPI(context.Background(), Request{
		Source:   "test_registry",
		Endpoint: srv.URL + "/search",
		Params:   map[string]string{"q": "acme"},
	})

	assert.True(t, res.Success)
	assert.False(t, res.Cached)
	assert.Empty(t, res.Err)
	assert.JSONEq(t, `{"name":"Acme Corporation"}`, string(res.Data))
	assert.Equal(t, "test_registry", res.Source)
}

func TestCollectFromAPI_RetriesOn500(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	g := newTestGateway(nil)
	res := g.CollectFromAPI(context.Background(), Request{Source: "flaky", Endpoint: srv.URL})

	assert.True(t, res.Success)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCollectFromAPI_FailureIsStructured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	g := newTestGateway(nil)
	res := g.CollectFromAPI(context.Background(), Request{Source: "missing", Endpoint: srv.URL})

	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "404")
	assert.Nil(t, res.Data)
}

func TestCollectFromAPI_DoesNotRetry404(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	g := newTestGateway(nil)
	res := g.CollectFromAPI(context.Background(), Request{Source: "missing", Endpoint: srv.URL})

	assert.False(t, res.Success)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCollectFromAPI_ResponseSizeCeiling(t *testing.T) {
	big := strings.Repeat("x", 2048)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(big))
	}))
	defer srv.Close()

	g := NewGateway(Config{
		MaxRetries:       1,
		RetryDelay:       time.Millisecond,
		MaxResponseBytes: 1024,
		PerHostRate:      1000,
	}, nil)
	res := g.CollectFromAPI(context.Background(), Request{Source: "bloated", Endpoint: srv.URL})

	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "exceeds")
}

func TestCollectFromAPI_UsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"hit":1}`))
	}))
	defer srv.Close()

	g := newTestGateway(NewMemoryCache())
	req := Request{Source: "cached_src", Endpoint: srv.URL, Params: map[string]string{"q": "acme"}}

	first := g.CollectFromAPI(context.Background(), req)
	require.True(t, first.Success)
	assert.False(t, first.Cached)

	second := g.CollectFromAPI(context.Background(), req)
	require.True(t, second.Success)
	assert.True(t, second.Cached)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCacheKey_Deterministic(t *testing.T) {
	a := CacheKey(Request{Source: "s", Endpoint: "/e", Params: map[string]string{"a": "1", "b": "2"}})
	b := CacheKey(Request{Source: "s", Endpoint: "/e", Params: map[string]string{"b": "2", "a": "1"}})
	assert.Equal(t, a, b)

	c := CacheKey(Request{Source: "s", Endpoint: "/e", Params: map[string]string{"a": "1", "b": "3"}})
	assert.NotEqual(t, a, c)
}

func TestCollectFromMultipleSources_OrderAndPartition(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer bad.Close()

	g := newTestGateway(nil)
	results := g.CollectFromMultipleSources(context.Background(), []Request{
		{Source: "first", Endpoint: good.URL},
		{Source: "second", Endpoint: bad.URL},
		{Source: "third", Endpoint: good.URL},
	})

	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Source)
	assert.Equal(t, "second", results[1].Source)
	assert.Equal(t, "third", results[2].Source)

	ok, failed := Partition(results)
	assert.Len(t, ok, 2)
	require.Len(t, failed, 1)
	assert.Equal(t, "second", failed[0].Source)
}

func TestSourceReliability(t *testing.T) {
	assert.InDelta(t, 0.5, SourceReliability(nil), 1e-9)

	history := []Result{{Success: true}, {Success: true}, {Success: false}, {Success: true}}
	assert.InDelta(t, 0.75, SourceReliability(history), 1e-9)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), -time.Second))
	data, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	data, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(data))
}
