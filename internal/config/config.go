// Package config loads hub settings: flat env vars with stable defaults
// plus an optional YAML file for the nested broker and sink blocks. Env
// wins over the file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr  = ":8099"
	defaultDBPath    = "/data/korea_connect.db"
	defaultHABaseURL = "http://supervisor/core"
)

// Config stores runtime settings for the hub process.
type Config struct {
	HTTPAddr string        `yaml:"http_addr"`
	DBPath   string        `yaml:"db_path"`
	LogLevel slog.Level    `yaml:"-"`
	RawLevel string        `yaml:"log_level"`
	HA       HAConfig      `yaml:"home_assistant"`
	MQTT     MQTTConfig    `yaml:"mqtt"`
	History  HistoryConfig `yaml:"history"`
}

// HAConfig points at the Home Assistant core API.
type HAConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
	// PushStates enables REST state push after every settled refresh.
	PushStates bool `yaml:"push_states"`
	// WatchEvents enables the websocket event watcher.
	WatchEvents bool `yaml:"watch_events"`
}

// MQTTConfig configures the optional discovery publisher.
type MQTTConfig struct {
	Enabled         bool   `yaml:"enabled"`
	BrokerURL       string `yaml:"broker_url"`
	ClientID        string `yaml:"client_id"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	TopicPrefix     string `yaml:"topic_prefix"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
}

// HistoryConfig configures the optional InfluxDB sink.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

// Load builds Config from the optional CONFIG_FILE plus environment
// overrides.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr: defaultHTTPAddr,
		DBPath:   defaultDBPath,
		RawLevel: "info",
		HA:       HAConfig{BaseURL: defaultHABaseURL},
		MQTT:     MQTTConfig{ClientID: "korea-connect", TopicPrefix: "korea_connect", DiscoveryPrefix: "homeassistant"},
	}

	if path := getenv("CONFIG_FILE", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DBPath = getenv("DB_PATH", cfg.DBPath)
	cfg.RawLevel = getenv("LOG_LEVEL", cfg.RawLevel)
	cfg.HA.BaseURL = getenv("HA_BASE_URL", cfg.HA.BaseURL)
	cfg.HA.Token = getenv("SUPERVISOR_TOKEN", cfg.HA.Token)
	if cfg.HA.Token != "" {
		cfg.HA.PushStates = true
		cfg.HA.WatchEvents = true
	}
	cfg.LogLevel = parseLogLevel(cfg.RawLevel)

	if cfg.MQTT.Enabled && cfg.MQTT.BrokerURL == "" {
		return Config{}, fmt.Errorf("mqtt enabled without broker_url")
	}
	if cfg.History.Enabled && (cfg.History.URL == "" || cfg.History.Bucket == "") {
		return Config{}, fmt.Errorf("history enabled without url or bucket")
	}
	return cfg, nil
}

// DBDir returns the target directory for DBPath.
func (c Config) DBDir() string {
	return filepath.Dir(c.DBPath)
}

func getenv(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
