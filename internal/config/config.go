// Package config handles environment variable loading for the
// scheduler daemon: database strings, loop intervals, notification
// settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the scheduler.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP port serving /metrics
	MetricsPort int

	// Base polling period of the scheduler loop
	TickInterval time.Duration

	// Throttle for the raffle-execution sweep
	RaffleSweepInterval time.Duration

	// Throttle for the timeline-ensure sweep
	TimelineSweepInterval time.Duration

	// How late a raffle may still execute before it is skipped
	RaffleCatchup time.Duration

	// How late an event may still go live
	StartLateness time.Duration

	// Per-call timeout for store and notification operations
	OpTimeout time.Duration

	// Per-advertisement cap on the commercial phase extension
	AdDurationCap time.Duration

	// Aggregate cap on the commercial phase extension
	AdTotalCap time.Duration

	// Base URL of the notification webhook; empty falls back to
	// log-only notifications
	WebhookURL string

	// Per-user notification budget, events per minute
	NotifyRatePerMinute int

	// OTLP trace collector endpoint
	OTELEndpoint string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbUrl := os.Getenv("DATABASE_URL")
	if dbUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	metricsPort, err := envInt("METRICS_PORT", 6161)
	if err != nil {
		return nil, err
	}

	tick, err := envDuration("TICK_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}

	raffleSweep, err := envDuration("RAFFLE_SWEEP_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	timelineSweep, err := envDuration("TIMELINE_SWEEP_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, err
	}

	catchup, err := envDuration("RAFFLE_CATCHUP", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	lateness, err := envDuration("START_LATENESS", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	opTimeout, err := envDuration("OP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	adCap, err := envDuration("AD_DURATION_CAP", time.Minute)
	if err != nil {
		return nil, err
	}

	adTotal, err := envDuration("AD_TOTAL_CAP", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	ratePerMinute, err := envInt("NOTIFY_RATE_PER_MINUTE", 6)
	if err != nil {
		return nil, err
	}

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "localhost:4317"
	}

	return &Config{
		DatabaseURL:           dbUrl,
		MetricsPort:           metricsPort,
		TickInterval:          tick,
		RaffleSweepInterval:   raffleSweep,
		TimelineSweepInterval: timelineSweep,
		RaffleCatchup:         catchup,
		StartLateness:         lateness,
		OpTimeout:             opTimeout,
		AdDurationCap:         adCap,
		AdTotalCap:            adTotal,
		WebhookURL:            os.Getenv("NOTIFY_WEBHOOK_URL"),
		NotifyRatePerMinute:   ratePerMinute,
		OTELEndpoint:          otelEndpoint,
	}, nil
}

func envInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func envDuration(name string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}
