// Package catalog talks to the imagery backend: a filterable stream of
// Sentinel-2 scenes with their band grids. Requests run behind a
// circuit breaker so a failing backend short-circuits instead of
// timing out once per window.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/sony/gobreaker"

	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/domain"
)

// Client fetches scene listings and band data over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a catalog client for the given backend base URL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "imagery-catalog",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("catalog breaker state change", "from", from.String(), "to", to.String())
		},
	})
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		logger:     logger,
	}
}

// Scenes lists the scenes acquired inside the window that intersect
// bounds and fall under the cloud-cover threshold, with band grids
// attached.
func (c *Client) Scenes(ctx context.Context, window domain.TimeWindow, bounds orb.Bound, maxCloudPct float64) ([]domain.Scene, error) {
	params := url.Values{
		"start":     {window.Start.Format(time.RFC3339)},
		"end":       {window.End().Format(time.RFC3339)},
		"bbox":      {boundString(bounds)},
		"max_cloud": {strconv.FormatFloat(maxCloudPct, 'g', -1, 64)},
	}

	var decoded sceneListResponse
	if err := c.getJSON(ctx, c.baseURL+"/scenes?"+params.Encode(), &decoded); err != nil {
		return nil, fmt.Errorf("list scenes for %s: %w", window.Label(), err)
	}

	scenes := make([]domain.Scene, 0, len(decoded.Scenes))
	for _, raw := range decoded.Scenes {
		scene, err := raw.toDomain()
		if err != nil {
			c.logger.Warn("skipping malformed scene", "scene_id", raw.ID, "error", err)
			continue
		}
		scenes = append(scenes, scene)
	}
	return scenes, nil
}

func (c *Client) getJSON(ctx context.Context, fullURL string, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("catalog request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("catalog status %d: %s", resp.StatusCode, body)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return nil, nil
	})
	return err
}

func boundString(b orb.Bound) string {
	return fmt.Sprintf("%g,%g,%g,%g", b.Min[0], b.Min[1], b.Max[0], b.Max[1])
}

// Wire types.

type sceneListResponse struct {
	Scenes []sceneDoc `json:"scenes"`
}

type sceneDoc struct {
	ID             string               `json:"id"`
	AcquiredAt     time.Time            `json:"acquired_at"`
	CloudCoverPct  float64              `json:"cloud_cover_pct"`
	SolarZenithDeg float64              `json:"solar_zenith_deg"`
	Bounds         [4]float64           `json:"bounds"` // west,south,east,north
	Width          int                  `json:"width"`
	Height         int                  `json:"height"`
	Bands          map[string][]float64 `json:"bands"`
}

func (d sceneDoc) toDomain() (domain.Scene, error) {
	if d.Width <= 0 || d.Height <= 0 {
		return domain.Scene{}, fmt.Errorf("invalid grid %dx%d", d.Width, d.Height)
	}

	scene := domain.Scene{
		ID:             d.ID,
		AcquiredAt:     d.AcquiredAt,
		CloudCoverPct:  d.CloudCoverPct,
		SolarZenithDeg: d.SolarZenithDeg,
		Bounds: orb.Bound{
			Min: orb.Point{d.Bounds[0], d.Bounds[1]},
			Max: orb.Point{d.Bounds[2], d.Bounds[3]},
		},
		Bands: make(map[string]*domain.Raster, len(d.Bands)),
	}

	size := d.Width * d.Height
	for name, values := range d.Bands {
		if len(values) != size {
			return domain.Scene{}, fmt.Errorf("band %s has %d values, want %d", name, len(values), size)
		}
		r := domain.NewRaster(d.Width, d.Height)
		copy(r.Values, values)
		scene.Bands[name] = r
	}
	return scene, nil
}
