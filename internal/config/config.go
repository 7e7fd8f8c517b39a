package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr           string        `yaml:"http_addr"`
	LogLevel           string        `yaml:"log_level"`
	DatabaseURL        string        `yaml:"database_url"`
	SPARQLEndpoint     string        `yaml:"sparql_endpoint"`
	EntityAPIEndpoint  string        `yaml:"entity_api_endpoint"`
	EntityPageBase     string        `yaml:"entity_page_base"`
	Language           string        `yaml:"language"`
	UserAgent          string        `yaml:"user_agent"`
	HTTPTimeout        time.Duration `yaml:"http_timeout"`
	Debounce           time.Duration `yaml:"debounce"`
	ZoomThreshold      int           `yaml:"zoom_threshold"`
	LabelZoomThreshold int           `yaml:"label_zoom_threshold"`
	ResultLimit        int           `yaml:"result_limit"`
	LabelChunkSize     int           `yaml:"label_chunk_size"`
	InitialLat         float64       `yaml:"initial_lat"`
	InitialLon         float64       `yaml:"initial_lon"`
	InitialZoom        int           `yaml:"initial_zoom"`
}

func Defaults() Config {
	return Config{
		HTTPAddr:           ":8081",
		LogLevel:           "info",
		SPARQLEndpoint:     "https://query.wikidata.org/sparql",
		EntityAPIEndpoint:  "https://www.wikidata.org/w/api.php",
		EntityPageBase:     "https://www.wikidata.org/wiki/",
		Language:           "en",
		UserAgent:          "wikicoord/1.0 (+https://www.wikidata.org/wiki/Wikidata:Data_access)",
		HTTPTimeout:        20 * time.Second,
		Debounce:           500 * time.Millisecond,
		ZoomThreshold:      12,
		LabelZoomThreshold: 16,
		ResultLimit:        1000,
		LabelChunkSize:     50,
		InitialZoom:        1,
	}
}

// Load reads .env (if present), then CONFIG_FILE (if set), then environment overrides.
func Load() (Config, error) {
	_ = godotenv.Load(".env")
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(getenv("CONFIG_FILE")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read CONFIG_FILE: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
		}
	}

	e := envReader{getenv: getenv}
	e.str("HTTP_ADDR", &cfg.HTTPAddr)
	e.str("LOG_LEVEL", &cfg.LogLevel)
	e.str("DATABASE_URL", &cfg.DatabaseURL)
	e.str("SPARQL_ENDPOINT", &cfg.SPARQLEndpoint)
	e.str("ENTITY_API_ENDPOINT", &cfg.EntityAPIEndpoint)
	e.str("ENTITY_PAGE_BASE", &cfg.EntityPageBase)
	e.str("LANGUAGE", &cfg.Language)
	e.str("USER_AGENT", &cfg.UserAgent)
	e.duration("HTTP_TIMEOUT", &cfg.HTTPTimeout)
	e.duration("DEBOUNCE", &cfg.Debounce)
	e.integer("ZOOM_THRESHOLD", &cfg.ZoomThreshold)
	e.integer("LABEL_ZOOM_THRESHOLD", &cfg.LabelZoomThreshold)
	e.integer("RESULT_LIMIT", &cfg.ResultLimit)
	e.integer("LABEL_CHUNK_SIZE", &cfg.LabelChunkSize)
	e.float("INITIAL_LAT", &cfg.InitialLat)
	e.float("INITIAL_LON", &cfg.InitialLon)
	e.integer("INITIAL_ZOOM", &cfg.InitialZoom)

	if err := errors.Join(e.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type envReader struct {
	getenv func(string) string
	errs   []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(e.getenv(key))
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float64) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid number %q", key, v))
		return
	}
	*dst = f
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return
	}
	*dst = d
}
