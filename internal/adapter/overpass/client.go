// Package overpass fetches storage-tank elements from the Overpass
// API, rotating across mirror endpoints with linear backoff.
package overpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/domain"
)

// Failure classes. All three are retried identically; the class only
// feeds logs and metrics.
const (
	FailTimeout   = "timeout"
	FailTransport = "transport"
	FailMalformed = "malformed"
)

// courtesyDelay is the fixed pause after every successful fetch, to
// bound request rate against the shared public service.
const courtesyDelay = 2 * time.Second

// Client issues Overpass queries against a ranked mirror list.
// Fetches are strictly sequential; the backoff sleeps keep them so.
type Client struct {
	endpoints        []string
	httpClient       *http.Client
	maxAttempts      int
	queryTimeoutSecs int
	clock            clockwork.Clock
	logger           *slog.Logger
}

// NewClient creates a mirror-rotating Overpass client. The clock is
// injectable so retry backoff is testable without real waiting.
func NewClient(endpoints []string, maxAttempts, queryTimeoutSecs int, timeout time.Duration, clock clockwork.Clock, logger *slog.Logger) *Client {
	return &Client{
		endpoints:        endpoints,
		httpClient:       &http.Client{Timeout: timeout},
		maxAttempts:      maxAttempts,
		queryTimeoutSecs: queryTimeoutSecs,
		clock:            clock,
		logger:           logger,
	}
}

// FetchRegion builds the region's storage-tank query and runs it
// through the mirror rotation.
func (c *Client) FetchRegion(ctx context.Context, region domain.Region) domain.FetchResult {
	return c.Fetch(ctx, BuildQuery(region.Box, c.queryTimeoutSecs))
}

// BuildQuery renders the Overpass QL query for one region: ways and
// relations tagged man_made=storage_tank inside the bounding box, with
// recursive member resolution so referenced nodes arrive in the same
// response.
func BuildQuery(box domain.BBox, timeoutSecs int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n", timeoutSecs)
	b.WriteString("(\n")
	fmt.Fprintf(&b, "  way[\"man_made\"=\"storage_tank\"](%s);\n", box.OverpassString())
	fmt.Fprintf(&b, "  relation[\"man_made\"=\"storage_tank\"](%s);\n", box.OverpassString())
	b.WriteString(");\nout body;\n>;\nout skel qt;\n")
	return b.String()
}

// BackoffDelay is the pure backoff function: 5 s times the attempt
// index, applied before each retry but never before the first attempt.
func BackoffDelay(attempt int) time.Duration {
	return time.Duration(attempt) * 5 * time.Second
}

// Fetch runs the query with up to maxAttempts tries, selecting
// endpoints[attempt mod len(endpoints)] so repeated failures rotate
// across mirrors. Timeouts, transport errors, and malformed bodies are
// retried alike; after the final attempt the result is empty with
// Exhausted set rather than an error; callers treat "no data" as a
// valid outcome. A backend remark is surfaced as a warning without
// failing the call.
func (c *Client) Fetch(ctx context.Context, query string) domain.FetchResult {
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		endpoint := c.endpoints[attempt%len(c.endpoints)]

		if attempt > 0 {
			delay := BackoffDelay(attempt)
			c.logger.Info("retrying fetch",
				"attempt", attempt+1,
				"max_attempts", c.maxAttempts,
				"endpoint", endpoint,
				"backoff", delay,
			)
			if !c.sleep(ctx, delay) {
				return domain.FetchResult{Attempts: attempt, Exhausted: true}
			}
		}

		resp, class, err := c.doRequest(ctx, endpoint, query)
		if err != nil {
			c.logger.Warn("fetch attempt failed",
				"attempt", attempt+1,
				"endpoint", endpoint,
				"class", class,
				"error", err,
			)
			continue
		}

		if resp.Remark != "" {
			c.logger.Warn("overpass remark", "remark", resp.Remark, "endpoint", endpoint)
		}

		// Pause briefly after success to bound request rate.
		c.sleep(ctx, courtesyDelay)

		return domain.FetchResult{
			Elements: resp.Elements,
			Remark:   resp.Remark,
			Attempts: attempt + 1,
		}
	}

	c.logger.Warn("all fetch attempts failed", "attempts", c.maxAttempts)
	return domain.FetchResult{Attempts: c.maxAttempts, Exhausted: true}
}

type response struct {
	Elements []domain.Element `json:"elements"`
	Remark   string           `json:"remark"`
}

// doRequest posts the query to one endpoint and classifies any
// failure as timeout, transport, or malformed.
func (c *Client) doRequest(ctx context.Context, endpoint, query string) (response, string, error) {
	form := url.Values{"data": {query}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return response{}, FailTransport, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return response{}, FailTimeout, fmt.Errorf("overpass request: %w", err)
		}
		return response{}, FailTransport, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return response{}, FailTransport, fmt.Errorf("overpass status %d: %s", resp.StatusCode, body)
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return response{}, FailMalformed, fmt.Errorf("decode response: %w", err)
	}
	return decoded, "", nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// sleep waits for d on the injected clock, returning false if the
// context is cancelled first.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(d):
		return true
	}
}
