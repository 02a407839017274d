package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umbra/config"
	"umbra/pkg/ai"
)

func fastRetry() ai.RetryConfig {
	return ai.RetryConfig{MaxAttempts: 2, BackoffBase: time.Millisecond, BackoffMultiplier: 2, MaxBackoff: 2 * time.Millisecond}
}

func TestClient_Embed_FitsDimensionsAndOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-004", req.Model)
		assert.Equal(t, []string{"a", "b"}, req.Input)
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[1,2,3,4,5]},{"index":0,"embedding":[9]}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "text-embedding-004", 3, WithRetryConfig(fastRetry()))
	got, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{9, 0, 0}, {1, 2, 3}}, got)
	assert.Equal(t, 3, c.Dimensions())
}

func TestClient_Embed_CountMismatchIsFatal(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k", "m", 3, WithRetryConfig(fastRetry()))
	_, err := c.Embed(context.Background(), []string{"a"})
	assert.True(t, ai.IsFatal(err))
	assert.Equal(t, 1, calls)
}

func TestClient_Embed_EachAttemptTakesQuota(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,2,3]}]}`))
	}))
	defer srv.Close()

	lim := ai.NewLimiter(config.Quota{RPD: 2})
	c := New(srv.URL, "k", "m", 3, WithRetryConfig(fastRetry()), WithLimiter(lim))
	_, err := c.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, lim.RemainingToday())

	_, err = c.Embed(context.Background(), []string{"b"})
	assert.ErrorIs(t, err, ai.ErrDailyQuota)
	assert.Equal(t, 2, calls)
}

func TestClient_Embed_Empty(t *testing.T) {
	c := New("http://127.0.0.1:1", "k", "m", 3)
	got, err := c.Embed(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestFit(t *testing.T) {
	assert.Equal(t, []float32{1, 0, 0}, Fit([]float32{1}, 3))
	assert.Equal(t, []float32{1, 2}, Fit([]float32{1, 2, 3}, 2))
	assert.Equal(t, []float32{1, 2, 3}, Fit([]float32{1, 2, 3}, 0))
}

func TestCodecRoundTrip(t *testing.T) {
	v := []float32{0.25, -1.5, 3}
	b := FloatsToBytes(v)
	assert.Len(t, b, 12)
	assert.Equal(t, v, BytesToFloats(b))
	assert.Empty(t, BytesToFloats(nil))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 2}))
}
