package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-warning-service/internal/metrics"
	"github.com/i474232898/weather-warning-service/internal/notify"
	"github.com/i474232898/weather-warning-service/internal/server"
)

// AppConfig is the validated service configuration.
type AppConfig struct {
	ListenAddr string `yaml:"listen_addr" validate:"required"`

	// Admission ceiling and store bounds.
	MaxConnections  int `yaml:"max_connections" validate:"min=1"`
	SeriesCapacity  int `yaml:"series_capacity" validate:"min=1"`
	WarningCapacity int `yaml:"warning_capacity" validate:"min=1"`
	HistoryLimit    int `yaml:"history_limit" validate:"min=1"`

	RecentWarningWindow time.Duration `yaml:"recent_warning_window" validate:"gt=0"`
	MetricsInterval     time.Duration `yaml:"metrics_interval" validate:"gte=1s"`
	MaxLineBytes        int           `yaml:"max_line_bytes" validate:"min=64"`
	EventBuffer         int           `yaml:"event_buffer" validate:"min=1"`

	// Empty disables the ops HTTP endpoint.
	OpsPort string `yaml:"ops_port" validate:"omitempty,numeric"`

	// Empty disables webhook delivery.
	WebhookURL     string        `yaml:"webhook_url" validate:"omitempty,url"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout" validate:"gt=0"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *AppConfig {
	return &AppConfig{
		ListenAddr:          ":6000",
		MaxConnections:      server.DefaultMaxConnections,
		SeriesCapacity:      100,
		WarningCapacity:     200,
		HistoryLimit:        10,
		RecentWarningWindow: 5 * time.Minute,
		MetricsInterval:     metrics.DefaultInterval,
		MaxLineBytes:        64 * 1024,
		EventBuffer:         1024,
		WebhookTimeout:      5 * time.Second,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// envKeys lists the recognised environment keys in application order. PORT
// comes before LISTEN_ADDR so an explicit address wins.
var envKeys = []string{
	"PORT",
	"LISTEN_ADDR",
	"MAX_CONNECTIONS",
	"SERIES_CAPACITY",
	"WARNING_CAPACITY",
	"HISTORY_LIMIT",
	"RECENT_WARNING_WINDOW",
	"METRICS_INTERVAL",
	"MAX_LINE_BYTES",
	"EVENT_BUFFER",
	"OPS_PORT",
	"WEBHOOK_URL",
	"WEBHOOK_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
}

var validate = validator.New()

// RegisterFlags defines one flag per environment key (PORT becomes --port,
// MAX_CONNECTIONS becomes --max-connections) plus --config.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file (env CONFIG_FILE)")
	for _, key := range envKeys {
		fs.String(flagName(key), "", fmt.Sprintf("overrides %s", key))
	}
}

// Load builds the configuration from defaults, an optional YAML file, .env
// and the environment, then flags set on fs. fs may be nil.
func Load(fs *pflag.FlagSet) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env", "error", err)
	}
	cfg := Default()

	path := getenvDefault("CONFIG_FILE", "")
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			path = f.Value.String()
		}
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	for _, key := range envKeys {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			if err := cfg.set(key, v); err != nil {
				return nil, err
			}
		}
	}

	if fs != nil {
		for _, key := range envKeys {
			f := fs.Lookup(flagName(key))
			if f == nil || !f.Changed {
				continue
			}
			if err := cfg.set(key, f.Value.String()); err != nil {
				return nil, fmt.Errorf("flag --%s: %w", f.Name, err)
			}
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) set(key, v string) error {
	var err error
	switch key {
	case "PORT":
		c.ListenAddr = ":" + strings.TrimPrefix(v, ":")
	case "LISTEN_ADDR":
		c.ListenAddr = v
	case "MAX_CONNECTIONS":
		c.MaxConnections, err = strconv.Atoi(v)
	case "SERIES_CAPACITY":
		c.SeriesCapacity, err = strconv.Atoi(v)
	case "WARNING_CAPACITY":
		c.WarningCapacity, err = strconv.Atoi(v)
	case "HISTORY_LIMIT":
		c.HistoryLimit, err = strconv.Atoi(v)
	case "RECENT_WARNING_WINDOW":
		c.RecentWarningWindow, err = time.ParseDuration(v)
	case "METRICS_INTERVAL":
		c.MetricsInterval, err = time.ParseDuration(v)
	case "MAX_LINE_BYTES":
		c.MaxLineBytes, err = strconv.Atoi(v)
	case "EVENT_BUFFER":
		c.EventBuffer, err = strconv.Atoi(v)
	case "OPS_PORT":
		c.OpsPort = v
	case "WEBHOOK_URL":
		c.WebhookURL = v
	case "WEBHOOK_TIMEOUT":
		c.WebhookTimeout, err = time.ParseDuration(v)
	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(v)
	case "LOG_FORMAT":
		c.LogFormat = strings.ToLower(v)
	default:
		return fmt.Errorf("unknown config key %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	return nil
}

// ServerConfig returns the connection manager settings.
func (c *AppConfig) ServerConfig() server.Config {
	return server.Config{
		Addr:                c.ListenAddr,
		MaxConnections:      c.MaxConnections,
		SeriesCapacity:      c.SeriesCapacity,
		WarningCapacity:     c.WarningCapacity,
		HistoryLimit:        c.HistoryLimit,
		RecentWarningWindow: c.RecentWarningWindow,
		MaxLineBytes:        c.MaxLineBytes,
	}
}

// WebhookConfig returns the webhook settings; ok is false when disabled.
func (c *AppConfig) WebhookConfig() (notify.WebhookConfig, bool) {
	if c.WebhookURL == "" {
		return notify.WebhookConfig{}, false
	}
	return notify.WebhookConfig{URL: c.WebhookURL, Timeout: c.WebhookTimeout}, true
}

// SlogLevel maps LogLevel to a slog level.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func flagName(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "-")
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
