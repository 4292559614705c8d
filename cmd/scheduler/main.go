// Package main is the entry point for the showplane scheduler.
// The scheduler is the single driver of showcase lifecycles: it
// executes raffles, creates and starts timelines, and advances live
// events phase by phase.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"showplane/internal/config"
	"showplane/internal/logger"
	"showplane/internal/notify"
	"showplane/internal/observability"
	"showplane/internal/scheduler"
	"showplane/internal/store/postgres"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	// Load Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to Postgres (the "Store")
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer store.Close()

	// Run migrations if requested
	if *migrateFlag {
		log.Println("Running database migrations...")
		if err := postgres.Migrate(store.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "showplane-scheduler", cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Failed to shutdown tracer: %v", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	// Observable gauge that queries the DB only when scraped.
	err = observability.RegisterLiveTimelinesGauge(func(ctx context.Context) int64 {
		count, err := store.CountLiveTimelines(ctx)
		if err != nil {
			log.Printf("Failed to count live timelines: %v", err)
			return 0 // Don't crash metrics scrape on DB error
		}
		return count
	})
	if err != nil {
		log.Printf("Failed to register live-timelines metric: %v", err)
	}

	// Notification sink: webhook when configured, logs otherwise.
	slogger := logger.New()
	var sink notify.Sink
	var featurer notify.Featurer
	if cfg.WebhookURL != "" {
		wh := notify.NewWebhook(cfg.WebhookURL, slogger, cfg.NotifyRatePerMinute)
		sink, featurer = wh, wh
		log.Printf("Notifying via webhook at %s", cfg.WebhookURL)
	} else {
		ls := &notify.LogSink{Logger: slogger}
		sink, featurer = ls, ls
		log.Println("No webhook configured, notifications will be logged only")
	}

	sched := scheduler.New(store, sink, featurer, slogger, scheduler.Config{
		TickInterval:       cfg.TickInterval,
		RaffleSweepEvery:   cfg.RaffleSweepInterval,
		TimelineSweepEvery: cfg.TimelineSweepInterval,
		RaffleCatchup:      cfg.RaffleCatchup,
		StartLateness:      cfg.StartLateness,
		OpTimeout:          cfg.OpTimeout,
		AdCap:              cfg.AdDurationCap,
		AdTotalCap:         cfg.AdTotalCap,
	})

	go func() {
		if err := sched.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Scheduler stopped: %v", err)
		}
	}()

	// Dedicated metrics server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		addr := fmt.Sprintf(":%d", cfg.MetricsPort)
		log.Printf("Scheduler metrics listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	cancel()

	<-sched.Done()
}
