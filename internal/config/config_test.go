package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	// Clear any existing env vars
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Check defaults
	if cfg.MetricsPort != 6161 {
		t.Errorf("expected MetricsPort 6161, got %d", cfg.MetricsPort)
	}
	if cfg.TickInterval != 2*time.Second {
		t.Errorf("expected TickInterval 2s, got %v", cfg.TickInterval)
	}
	if cfg.RaffleSweepInterval != 30*time.Second {
		t.Errorf("expected RaffleSweepInterval 30s, got %v", cfg.RaffleSweepInterval)
	}
	if cfg.TimelineSweepInterval != 15*time.Second {
		t.Errorf("expected TimelineSweepInterval 15s, got %v", cfg.TimelineSweepInterval)
	}
	if cfg.RaffleCatchup != 10*time.Minute {
		t.Errorf("expected RaffleCatchup 10m, got %v", cfg.RaffleCatchup)
	}
	if cfg.StartLateness != 24*time.Hour {
		t.Errorf("expected StartLateness 24h, got %v", cfg.StartLateness)
	}
	if cfg.OpTimeout != 10*time.Second {
		t.Errorf("expected OpTimeout 10s, got %v", cfg.OpTimeout)
	}
	if cfg.AdDurationCap != time.Minute {
		t.Errorf("expected AdDurationCap 1m, got %v", cfg.AdDurationCap)
	}
	if cfg.AdTotalCap != 10*time.Minute {
		t.Errorf("expected AdTotalCap 10m, got %v", cfg.AdTotalCap)
	}
	if cfg.WebhookURL != "" {
		t.Errorf("expected empty WebhookURL, got %s", cfg.WebhookURL)
	}
	if cfg.NotifyRatePerMinute != 6 {
		t.Errorf("expected NotifyRatePerMinute 6, got %d", cfg.NotifyRatePerMinute)
	}
	if cfg.OTELEndpoint != "localhost:4317" {
		t.Errorf("expected OTELEndpoint localhost:4317, got %s", cfg.OTELEndpoint)
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://custom/db")
	t.Setenv("METRICS_PORT", "9999")
	t.Setenv("TICK_INTERVAL", "5s")
	t.Setenv("RAFFLE_SWEEP_INTERVAL", "1m")
	t.Setenv("RAFFLE_CATCHUP", "30m")
	t.Setenv("NOTIFY_WEBHOOK_URL", "http://hooks:8080")
	t.Setenv("NOTIFY_RATE_PER_MINUTE", "2")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://custom/db" {
		t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
	}
	if cfg.MetricsPort != 9999 {
		t.Errorf("expected MetricsPort 9999, got %d", cfg.MetricsPort)
	}
	if cfg.TickInterval != 5*time.Second {
		t.Errorf("expected TickInterval 5s, got %v", cfg.TickInterval)
	}
	if cfg.RaffleSweepInterval != time.Minute {
		t.Errorf("expected RaffleSweepInterval 1m, got %v", cfg.RaffleSweepInterval)
	}
	if cfg.RaffleCatchup != 30*time.Minute {
		t.Errorf("expected RaffleCatchup 30m, got %v", cfg.RaffleCatchup)
	}
	if cfg.WebhookURL != "http://hooks:8080" {
		t.Errorf("expected WebhookURL http://hooks:8080, got %s", cfg.WebhookURL)
	}
	if cfg.NotifyRatePerMinute != 2 {
		t.Errorf("expected NotifyRatePerMinute 2, got %d", cfg.NotifyRatePerMinute)
	}
	if cfg.OTELEndpoint != "otel-collector:4317" {
		t.Errorf("expected OTELEndpoint otel-collector:4317, got %s", cfg.OTELEndpoint)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("TICK_INTERVAL", "often")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid TICK_INTERVAL")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("METRICS_PORT", "not-a-port")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid METRICS_PORT")
	}
}
