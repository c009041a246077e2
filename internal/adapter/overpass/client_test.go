package overpass

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/domain"
)

const elementsBody = `{
	"elements": [
		{"type": "node", "id": 1, "lon": 4.0, "lat": 51.9},
		{"type": "way", "id": 100, "nodes": [1], "tags": {"man_made": "storage_tank"}}
	]
}`

// pumpClock drains clock waiters so backoff and courtesy sleeps finish
// without real waiting. Runs until done is closed.
func pumpClock(fc *clockwork.FakeClock, done <-chan struct{}) {
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			if err := fc.BlockUntilContext(ctx, 1); err == nil {
				fc.Advance(15 * time.Second)
			}
			cancel()
		}
	}()
}

func fetchWithFakeClock(t *testing.T, c *Client, query string) domain.FetchResult {
	t.Helper()
	done := make(chan struct{})
	defer close(done)
	pumpClock(c.clock.(*clockwork.FakeClock), done)
	return c.Fetch(context.Background(), query)
}

func newTestClient(endpoints []string, maxAttempts int) *Client {
	return NewClient(endpoints, maxAttempts, 180, 5*time.Second, clockwork.NewFakeClock(), slog.Default())
}

func TestBuildQuery(t *testing.T) {
	box := domain.BBox{South: 25.15, West: 56.30, North: 25.25, East: 56.40}
	query := BuildQuery(box, 180)

	assert.Contains(t, query, "[out:json][timeout:180];")
	assert.Contains(t, query, `way["man_made"="storage_tank"](25.15,56.3,25.25,56.4);`)
	assert.Contains(t, query, `relation["man_made"="storage_tank"](25.15,56.3,25.25,56.4);`)
	assert.Contains(t, query, "out body;")
	assert.Contains(t, query, ">;")
	assert.Contains(t, query, "out skel qt;")
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, time.Duration(0), BackoffDelay(0))
	assert.Equal(t, 5*time.Second, BackoffDelay(1))
	assert.Equal(t, 10*time.Second, BackoffDelay(2))
}

func TestFetch(t *testing.T) {
	t.Run("first attempt succeeds", func(t *testing.T) {
		var gotQuery atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			gotQuery.Store(r.FormValue("data"))
			w.Write([]byte(elementsBody))
		}))
		defer srv.Close()

		c := newTestClient([]string{srv.URL}, 3)
		res := fetchWithFakeClock(t, c, "QUERY")

		assert.False(t, res.Exhausted)
		assert.Equal(t, 1, res.Attempts)
		require.Len(t, res.Elements, 2)
		assert.Equal(t, "node", res.Elements[0].Type)
		assert.Equal(t, int64(100), res.Elements[1].ID)
		assert.Equal(t, "QUERY", gotQuery.Load())
	})

	t.Run("fails over to the next mirror", func(t *testing.T) {
		var primaryHits atomic.Int64
		primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			primaryHits.Add(1)
			http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
		}))
		defer primary.Close()

		var secondaryHits atomic.Int64
		secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secondaryHits.Add(1)
			w.Write([]byte(elementsBody))
		}))
		defer secondary.Close()

		c := newTestClient([]string{primary.URL, secondary.URL}, 3)
		res := fetchWithFakeClock(t, c, "QUERY")

		assert.False(t, res.Exhausted)
		assert.Equal(t, 2, res.Attempts)
		assert.Equal(t, int64(1), primaryHits.Load())
		assert.Equal(t, int64(1), secondaryHits.Load())
	})

	t.Run("rotation wraps past the mirror list", func(t *testing.T) {
		var hits atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				http.Error(w, "busy", http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(elementsBody))
		}))
		defer srv.Close()

		c := newTestClient([]string{srv.URL, srv.URL}, 4)
		res := fetchWithFakeClock(t, c, "QUERY")

		assert.False(t, res.Exhausted)
		assert.Equal(t, 3, res.Attempts)
	})

	t.Run("malformed body is retried", func(t *testing.T) {
		var hits atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) == 1 {
				w.Write([]byte("<html>not json</html>"))
				return
			}
			w.Write([]byte(elementsBody))
		}))
		defer srv.Close()

		c := newTestClient([]string{srv.URL}, 3)
		res := fetchWithFakeClock(t, c, "QUERY")

		assert.False(t, res.Exhausted)
		assert.Equal(t, 2, res.Attempts)
	})

	t.Run("exhausts all attempts", func(t *testing.T) {
		var hits atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := newTestClient([]string{srv.URL}, 3)
		res := fetchWithFakeClock(t, c, "QUERY")

		assert.True(t, res.Exhausted)
		assert.Equal(t, 3, res.Attempts)
		assert.Empty(t, res.Elements)
		assert.Equal(t, int64(3), hits.Load())
	})

	t.Run("remark is surfaced without failing", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"elements": [], "remark": "runtime error: query ran out of memory"}`))
		}))
		defer srv.Close()

		c := newTestClient([]string{srv.URL}, 3)
		res := fetchWithFakeClock(t, c, "QUERY")

		assert.False(t, res.Exhausted)
		assert.Equal(t, "runtime error: query ran out of memory", res.Remark)
	})

	t.Run("cancelled context stops the retry loop", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := newTestClient([]string{srv.URL}, 3)
		res := c.Fetch(ctx, "QUERY")

		assert.True(t, res.Exhausted)
		assert.Less(t, res.Attempts, 3)
	})
}

func TestFetchRegion(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery.Store(r.FormValue("data"))
		w.Write([]byte(elementsBody))
	}))
	defer srv.Close()

	c := newTestClient([]string{srv.URL}, 3)
	region := domain.Region{
		Name: "Fujairah, UAE",
		Box:  domain.BBox{South: 25.15, West: 56.30, North: 25.25, East: 56.40},
	}

	done := make(chan struct{})
	defer close(done)
	pumpClock(c.clock.(*clockwork.FakeClock), done)

	res := c.FetchRegion(context.Background(), region)

	assert.False(t, res.Exhausted)
	query, _ := gotQuery.Load().(string)
	assert.Contains(t, query, "25.15,56.3,25.25,56.4")
	assert.Contains(t, query, "[timeout:180]")
}
