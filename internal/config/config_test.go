package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("missing DATABASE_URL must fail")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sensoralert")
	t.Setenv("SENSORALERT_CONFIG", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("COOLDOWN_WINDOW", "")
	t.Setenv("DISPATCH_RETRIES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("http addr = %s", cfg.HTTPAddr)
	}
	if cfg.CooldownWindow != 5*time.Minute {
		t.Fatalf("cooldown window = %s, want 5m", cfg.CooldownWindow)
	}
	if cfg.DispatchRetries != 3 {
		t.Fatalf("dispatch retries = %d, want 3", cfg.DispatchRetries)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/sensoralert")
	t.Setenv("SENSORALERT_CONFIG", "")
	t.Setenv("COOLDOWN_WINDOW", "10m")
	t.Setenv("DISPATCH_RETRIES", "5")
	t.Setenv("EMAIL_WEBHOOK_URL", "http://mailer.internal/jobs")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CooldownWindow != 10*time.Minute {
		t.Fatalf("cooldown window = %s", cfg.CooldownWindow)
	}
	if cfg.DispatchRetries != 5 {
		t.Fatalf("dispatch retries = %d", cfg.DispatchRetries)
	}
	if cfg.EmailWebhookURL != "http://mailer.internal/jobs" {
		t.Fatalf("email webhook = %s", cfg.EmailWebhookURL)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http_addr: ":9090"
cooldown_window: 2m
templates:
  TEMPERATURE:
    bounds:
      range_min: -10
      range_max: 40
      alert_low: 0
      alert_high: 30
      critical_low: -5
      critical_high: 35
    unit: "°C"
    precision: 1
    severity: ALERT
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("DATABASE_URL", "postgres://localhost/sensoralert")
	t.Setenv("SENSORALERT_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("http addr = %s", cfg.HTTPAddr)
	}
	if cfg.CooldownWindow != 2*time.Minute {
		t.Fatalf("cooldown window = %s", cfg.CooldownWindow)
	}
	tpl, ok := cfg.Templates["TEMPERATURE"]
	if !ok {
		t.Fatal("template override missing")
	}
	if tpl.Bounds.AlertHigh != 30 || tpl.Precision != 1 {
		t.Fatalf("template = %+v", tpl)
	}
}
