package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	hits    atomic.Int32
	status  atomic.Int32
	delay   time.Duration
	lastKey atomic.Value
	server  *httptest.Server
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	f := &fakeProvider{}
	f.status.Store(http.StatusOK)
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		f.lastKey.Store(r.Header.Get(headerAPIKey))
		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		var params map[string]string
		_ = json.NewDecoder(r.Body).Decode(&params)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(f.status.Load()))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"path": r.URL.Path, "pan": params["pan"]},
		})
	}))
	t.Cleanup(f.server.Close)
	return f
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New("", "key")
	require.Error(t, err)

	_, err = New("not a url", "key")
	require.Error(t, err)
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the body and sends the api key", func(t *testing.T) {
		f := newFakeProvider(t)
		c, err := New(f.server.URL+"/", "secret")
		require.NoError(t, err)

		resp, err := c.Execute(ctx, "pan basic", map[string]string{"pan": "ABCDE1234F"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "secret", f.lastKey.Load())

		var body struct {
			Data map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(resp.Body, &body))
		assert.Equal(t, "/v1/verify/pan basic", body.Data["path"])
		assert.Equal(t, "ABCDE1234F", body.Data["pan"])
	})

	t.Run("4xx bodies are returned for classification", func(t *testing.T) {
		f := newFakeProvider(t)
		f.status.Store(http.StatusNotFound)
		c, err := New(f.server.URL, "")
		require.NoError(t, err)

		resp, err := c.Execute(ctx, "pan", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.NotEmpty(t, resp.Body)
	})

	t.Run("5xx is unavailable", func(t *testing.T) {
		f := newFakeProvider(t)
		f.status.Store(http.StatusBadGateway)
		c, err := New(f.server.URL, "")
		require.NoError(t, err)

		_, err = c.Execute(ctx, "pan", nil)
		require.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("429 is unavailable", func(t *testing.T) {
		f := newFakeProvider(t)
		f.status.Store(http.StatusTooManyRequests)
		c, err := New(f.server.URL, "")
		require.NoError(t, err)

		_, err = c.Execute(ctx, "pan", nil)
		require.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("timeout is unavailable", func(t *testing.T) {
		f := newFakeProvider(t)
		f.delay = 200 * time.Millisecond
		c, err := New(f.server.URL, "", WithTimeout(20*time.Millisecond))
		require.NoError(t, err)

		_, err = c.Execute(ctx, "pan", nil)
		require.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	f := newFakeProvider(t)
	f.status.Store(http.StatusServiceUnavailable)
	c, err := New(f.server.URL, "", WithBreaker(2, time.Minute))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := c.Execute(ctx, "pan", nil)
		require.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, "open", c.State())

	f.status.Store(http.StatusOK)
	_, err = c.Execute(ctx, "pan", nil)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), f.hits.Load(), "open breaker must not reach the provider")
}

func TestBreakerRecoversAfterOpenTimeout(t *testing.T) {
	ctx := context.Background()
	f := newFakeProvider(t)
	f.status.Store(http.StatusInternalServerError)
	c, err := New(f.server.URL, "", WithBreaker(1, 50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Execute(ctx, "pan", nil)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "open", c.State())

	f.status.Store(http.StatusOK)
	time.Sleep(80 * time.Millisecond)

	_, err = c.Execute(ctx, "pan", nil)
	require.NoError(t, err)
	assert.Equal(t, "closed", c.State())
}

func TestCancelledCallsDoNotTripTheBreaker(t *testing.T) {
	f := newFakeProvider(t)
	c, err := New(f.server.URL, "", WithBreaker(1, time.Minute))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Execute(ctx, "pan", nil)
	require.Error(t, err)
	assert.Equal(t, "closed", c.State())
}
