// Package config loads service configuration from the environment with an
// optional YAML overlay.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	thresholds "sensoralert/internal/thresholds/domain"
)

// Config holds all runtime settings for the alert service.
type Config struct {
	HTTPAddr    string
	DatabaseURL string
	RedisAddr   string

	CooldownWindow  time.Duration
	DispatchRetries int
	DispatchTimeout time.Duration

	EmailWebhookURL string
	SMSWebhookURL   string

	// Templates overrides the built-in per-sensor-type defaults used at
	// provisioning time.
	Templates map[string]thresholds.Template
}

// fileConfig mirrors Config for the yaml overlay. Durations are strings in
// Go duration syntax ("5m", "30s").
type fileConfig struct {
	HTTPAddr        string                         `yaml:"http_addr"`
	DatabaseURL     string                         `yaml:"database_url"`
	RedisAddr       string                         `yaml:"redis_addr"`
	CooldownWindow  string                         `yaml:"cooldown_window"`
	DispatchRetries int                            `yaml:"dispatch_retries"`
	DispatchTimeout string                         `yaml:"dispatch_timeout"`
	EmailWebhookURL string                         `yaml:"email_webhook_url"`
	SMSWebhookURL   string                         `yaml:"sms_webhook_url"`
	Templates       map[string]thresholds.Template `yaml:"templates"`
}

// Load builds config from env vars, then overlays SENSORALERT_CONFIG yaml
// when set. DATABASE_URL is the only hard requirement.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		CooldownWindow:  getenvDurationDefault("COOLDOWN_WINDOW", 5*time.Minute),
		DispatchRetries: getenvIntDefault("DISPATCH_RETRIES", 3),
		DispatchTimeout: getenvDurationDefault("DISPATCH_TIMEOUT", 30*time.Second),
		EmailWebhookURL: os.Getenv("EMAIL_WEBHOOK_URL"),
		SMSWebhookURL:   os.Getenv("SMS_WEBHOOK_URL"),
	}

	if path := os.Getenv("SENSORALERT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		var overlay fileConfig
		if err := yaml.Unmarshal(data, &overlay); err != nil {
			return cfg, err
		}
		if err := applyOverlay(&cfg, overlay); err != nil {
			return cfg, err
		}
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("config: DATABASE_URL required")
	}
	if cfg.CooldownWindow <= 0 {
		cfg.CooldownWindow = 5 * time.Minute
	}
	if cfg.DispatchRetries <= 0 {
		cfg.DispatchRetries = 3
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 30 * time.Second
	}
	return cfg, nil
}

func applyOverlay(cfg *Config, overlay fileConfig) error {
	if overlay.HTTPAddr != "" {
		cfg.HTTPAddr = overlay.HTTPAddr
	}
	if overlay.DatabaseURL != "" {
		cfg.DatabaseURL = overlay.DatabaseURL
	}
	if overlay.RedisAddr != "" {
		cfg.RedisAddr = overlay.RedisAddr
	}
	if overlay.CooldownWindow != "" {
		parsed, err := time.ParseDuration(overlay.CooldownWindow)
		if err != nil {
			return fmt.Errorf("config: invalid cooldown_window: %w", err)
		}
		cfg.CooldownWindow = parsed
	}
	if overlay.DispatchRetries > 0 {
		cfg.DispatchRetries = overlay.DispatchRetries
	}
	if overlay.DispatchTimeout != "" {
		parsed, err := time.ParseDuration(overlay.DispatchTimeout)
		if err != nil {
			return fmt.Errorf("config: invalid dispatch_timeout: %w", err)
		}
		cfg.DispatchTimeout = parsed
	}
	if overlay.EmailWebhookURL != "" {
		cfg.EmailWebhookURL = overlay.EmailWebhookURL
	}
	if overlay.SMSWebhookURL != "" {
		cfg.SMSWebhookURL = overlay.SMSWebhookURL
	}
	if len(overlay.Templates) > 0 {
		cfg.Templates = overlay.Templates
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDurationDefault(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
