package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/SamPolishchuk/GEE-Oil-Estimations/internal/domain"
)

// Config holds all settings for both the acquisition and extraction
// runs, populated from environment variables. Immutable after Load;
// components receive it (or slices of it) at construction and keep no
// process-wide state.
type Config struct {
	Regions []domain.Region
	Mirrors []string

	MaxFetchAttempts int
	FetchTimeout     time.Duration // HTTP timeout per Overpass request
	QueryTimeoutSecs int           // [timeout:N] directive inside the query

	DataDir    string // asset root; per-region files go to DataDir/regions
	MergedFile string // combined single-file output name under DataDir

	StartDate    time.Time
	EndDate      time.Time
	IntervalDays int
	MaxCloudPct  float64
	ScaleMeters  float64
	TileRows     int

	CatalogURL     string
	CatalogTimeout time.Duration

	CSVPath string

	HTTPAddr        string
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	InfluxEnabled bool
	InfluxURL     string
	InfluxToken   string
	InfluxOrg     string
	InfluxBucket  string
}

// DefaultRegions are the major oil storage locations monitored when no
// REGIONS override is set.
var DefaultRegions = []domain.Region{
	{Name: "Fujairah, UAE", Box: domain.BBox{South: 25.15, West: 56.30, North: 25.25, East: 56.40}},
	{Name: "Rotterdam, Netherlands", Box: domain.BBox{South: 51.85, West: 3.90, North: 51.99, East: 4.50}},
	{Name: "Jurong Island, Singapore", Box: domain.BBox{South: 1.22, West: 103.65, North: 1.30, East: 103.75}},
	{Name: "Houston Ship Channel, USA", Box: domain.BBox{South: 29.70, West: -95.30, North: 29.80, East: -94.90}},
	{Name: "Saldanha Bay, South Africa", Box: domain.BBox{South: -33.05, West: 17.85, North: -32.95, East: 18.05}},
	{Name: "Zhoushan, China", Box: domain.BBox{South: 29.85, West: 121.90, North: 30.10, East: 122.30}},
	{Name: "Cushing, OK", Box: domain.BBox{South: 35.95, West: -97.45, North: 36.15, East: -96.95}},
}

// DefaultMirrors are the interchangeable Overpass endpoints, in rank
// order.
var DefaultMirrors = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://overpass.openstreetmap.ru/api/interpreter",
}

// Load reads configuration from the environment (and a local .env file
// when present), applying defaults where unset. Configuration errors,
// including an anchor date off the reference weekday, fail here before
// any network activity.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; absence is not an error

	regions, err := parseRegions(envOrDefault("REGIONS", ""))
	if err != nil {
		return nil, err
	}

	startDate, err := parseDate(envOrDefault("START_DATE", "2024-01-03"))
	if err != nil {
		return nil, fmt.Errorf("invalid START_DATE: %w", err)
	}
	endDate, err := parseDate(envOrDefault("END_DATE", "2024-03-01"))
	if err != nil {
		return nil, fmt.Errorf("invalid END_DATE: %w", err)
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "200s")
	if err != nil {
		return nil, err
	}
	catalogTimeout, err := parsePositiveDuration("CATALOG_TIMEOUT", "120s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Regions: regions,
		Mirrors: parseList(envOrDefault("OVERPASS_MIRRORS", strings.Join(DefaultMirrors, ","))),

		MaxFetchAttempts: parseIntOrDefault("MAX_FETCH_ATTEMPTS", 3),
		FetchTimeout:     fetchTimeout,
		QueryTimeoutSecs: parseIntOrDefault("QUERY_TIMEOUT_SECS", 180),

		DataDir:    envOrDefault("DATA_DIR", "data"),
		MergedFile: envOrDefault("MERGED_FILE", "oil_tanks.geojson"),

		StartDate:    startDate,
		EndDate:      endDate,
		IntervalDays: parseIntOrDefault("COMPOSITE_INTERVAL_DAYS", 7),
		MaxCloudPct:  parseFloatOrDefault("MAX_CLOUD_PCT", 20),
		ScaleMeters:  parseFloatOrDefault("SCALE_METERS", 10),
		TileRows:     parseIntOrDefault("TILE_ROWS", 256),

		CatalogURL:     envOrDefault("CATALOG_URL", "http://localhost:8484"),
		CatalogTimeout: catalogTimeout,

		CSVPath: envOrDefault("CSV_PATH", "data/weekly_tank_metrics.csv"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout: shutdownTimeout,

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),

		KafkaEnabled: envOrDefault("KAFKA_ENABLED", "") == "true",
		KafkaBrokers: parseList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "weekly-tank-metrics"),

		InfluxEnabled: envOrDefault("INFLUX_ENABLED", "") == "true",
		InfluxURL:     envOrDefault("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:   os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:     envOrDefault("INFLUX_ORG", "tank-watch"),
		InfluxBucket:  envOrDefault("INFLUX_BUCKET", "tank-metrics"),
	}

	if len(cfg.Regions) == 0 {
		return nil, errors.New("at least one region is required")
	}
	if len(cfg.Mirrors) == 0 {
		return nil, errors.New("OVERPASS_MIRRORS is required")
	}
	if cfg.MaxFetchAttempts < 1 {
		return nil, errors.New("MAX_FETCH_ATTEMPTS must be at least 1")
	}
	if cfg.IntervalDays < 1 {
		return nil, errors.New("COMPOSITE_INTERVAL_DAYS must be at least 1")
	}
	if !cfg.EndDate.After(cfg.StartDate) {
		return nil, errors.New("END_DATE must be after START_DATE")
	}
	if err := domain.ValidateAnchor(cfg.StartDate); err != nil {
		return nil, err
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.InfluxEnabled && cfg.InfluxToken == "" {
		return nil, errors.New("INFLUX_ENABLED is true but INFLUX_TOKEN is not set")
	}

	return cfg, nil
}

// RegionAssetDir returns the directory holding per-region asset files.
func (c *Config) RegionAssetDir() string {
	return c.DataDir + "/regions"
}

// MergedName returns the merged asset name without its .geojson
// extension, as the store appends one.
func (c *Config) MergedName() string {
	return strings.TrimSuffix(c.MergedFile, ".geojson")
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIntOrDefault(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

func parseFloatOrDefault(key string, def float64) float64 {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return def
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

// parseRegions decodes the REGIONS override. Format:
// "Name|south,west,north,east;Name2|south,west,north,east". An empty
// spec selects DefaultRegions.
func parseRegions(spec string) ([]domain.Region, error) {
	if spec == "" {
		regions := make([]domain.Region, len(DefaultRegions))
		copy(regions, DefaultRegions)
		return regions, nil
	}

	var regions []domain.Region
	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, coords, found := strings.Cut(entry, "|")
		if !found {
			return nil, fmt.Errorf("invalid REGIONS entry %q: missing '|'", entry)
		}
		parts := strings.Split(coords, ",")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid REGIONS entry %q: want south,west,north,east", entry)
		}
		vals := make([]float64, 4)
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid REGIONS entry %q: %w", entry, err)
			}
			vals[i] = v
		}
		regions = append(regions, domain.Region{
			Name: strings.TrimSpace(name),
			Box:  domain.BBox{South: vals[0], West: vals[1], North: vals[2], East: vals[3]},
		})
	}
	return regions, nil
}
