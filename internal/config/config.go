package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"mare-records/internal/platform/logger"
)

type (
	Config struct {
		HTTP
		Database
		Log
		Loki
		ImageSearch
		Probe
		Global
	}

	HTTP struct {
		Port         int
		Host         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
	}
	Database struct {
		URL            string // vacío = in-memory
		MaxOpenConns   int
		MaxIdleConns   int
		ConnectTimeout time.Duration
		QueryTimeout   time.Duration
	}
	Log struct {
		Level  logger.Level
		Format logger.Format
		App    string
	}
	Loki struct {
		URL        string // vacío = sin Loki
		BatchSize  int
		BatchWait  time.Duration
		BufferSize int
		Timeout    time.Duration
		Labels     map[string]string // LOKI_LABELS="env=prod,team=mares"
	}
	ImageSearch struct {
		Enabled bool
		URL     string
		Timeout time.Duration
	}
	Probe struct {
		Enabled  bool
		Schedule string // formato cron o "@every 30s"
	}
	Global struct {
		ShutdownTimeout time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 3000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("http_read_timeout", "10s")
	v.SetDefault("http_write_timeout", "15s")
	v.SetDefault("shutdown_timeout", "10s")

	// Storage
	v.SetDefault("database_url", "")
	v.SetDefault("database_max_open_conns", 10)
	v.SetDefault("database_max_idle_conns", 5)
	v.SetDefault("database_connect_timeout", "3s")
	v.SetDefault("database_query_timeout", "5s")

	// Logging
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("app_name", "mare-records")

	// Loki
	v.SetDefault("loki_url", "")
	v.SetDefault("loki_batch_size", 100)
	v.SetDefault("loki_batch_wait", "1s")
	v.SetDefault("loki_buffer_size", 1024)
	v.SetDefault("loki_timeout", "5s")
	v.SetDefault("loki_labels", "")

	// Imágenes
	v.SetDefault("image_search_enabled", true)
	v.SetDefault("image_search_url", "https://derpibooru.org")
	v.SetDefault("image_search_timeout", "10s")

	// Probe de storage
	v.SetDefault("storage_probe_enabled", true)
	v.SetDefault("storage_probe_schedule", "@every 30s")

	return &Config{
		HTTP: HTTP{
			Port:         v.GetInt("PORT"),
			Host:         v.GetString("HOST"),
			ReadTimeout:  v.GetDuration("HTTP_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("HTTP_WRITE_TIMEOUT"),
		},
		Database: Database{
			URL:            strings.TrimSpace(v.GetString("DATABASE_URL")),
			MaxOpenConns:   v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:   v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnectTimeout: v.GetDuration("DATABASE_CONNECT_TIMEOUT"),
			QueryTimeout:   v.GetDuration("DATABASE_QUERY_TIMEOUT"),
		},
		Log: Log{
			Level:  logger.ParseLevel(v.GetString("LOG_LEVEL")),
			Format: logger.ParseFormat(v.GetString("LOG_FORMAT")),
			App:    v.GetString("APP_NAME"),
		},
		Loki: Loki{
			URL:        strings.TrimSpace(v.GetString("LOKI_URL")),
			BatchSize:  v.GetInt("LOKI_BATCH_SIZE"),
			BatchWait:  v.GetDuration("LOKI_BATCH_WAIT"),
			BufferSize: v.GetInt("LOKI_BUFFER_SIZE"),
			Timeout:    v.GetDuration("LOKI_TIMEOUT"),
			Labels:     parseLabels(v.GetString("LOKI_LABELS")),
		},
		ImageSearch: ImageSearch{
			Enabled: v.GetBool("IMAGE_SEARCH_ENABLED"),
			URL:     strings.TrimSpace(v.GetString("IMAGE_SEARCH_URL")),
			Timeout: v.GetDuration("IMAGE_SEARCH_TIMEOUT"),
		},
		Probe: Probe{
			Enabled:  v.GetBool("STORAGE_PROBE_ENABLED"),
			Schedule: strings.TrimSpace(v.GetString("STORAGE_PROBE_SCHEDULE")),
		},
		Global: Global{
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
	}
}

// Load lee el entorno y valida. Es lo que usa main.
func Load() (*Config, error) {
	cfg := NewConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr devuelve host:port para http.Server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if c.Database.QueryTimeout <= 0 {
		errs = append(errs, errors.New("DATABASE_QUERY_TIMEOUT must be positive"))
	}
	if c.Loki.URL != "" {
		if err := validateHTTPURL(c.Loki.URL); err != nil {
			errs = append(errs, fmt.Errorf("LOKI_URL: %w", err))
		}
	}
	if c.ImageSearch.Enabled {
		if err := validateHTTPURL(c.ImageSearch.URL); err != nil {
			errs = append(errs, fmt.Errorf("IMAGE_SEARCH_URL: %w", err))
		}
	}
	if c.Probe.Enabled {
		if _, err := cron.ParseStandard(c.Probe.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("STORAGE_PROBE_SCHEDULE: %w", err))
		}
	}
	if c.Global.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("host required")
	}
	return nil
}

func parseLabels(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}
