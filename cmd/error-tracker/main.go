// Package main runs the error-tracker service: an HTTP ingestion and query
// surface around the in-process aggregation engine, with alert fan-out to
// NATS, Discord, sqlite history and a live websocket feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/fattits30-dev/error-tracker/internal/api"
	"github.com/fattits30-dev/error-tracker/internal/db"
	"github.com/fattits30-dev/error-tracker/internal/sink"
	"github.com/fattits30-dev/error-tracker/internal/tracker"
)

// fileConfig is the optional YAML tuning file. Durations use Go syntax
// ("60s", "5m"); unset fields keep the engine defaults.
type fileConfig struct {
	SampleRates       map[string]float64 `yaml:"sample_rates"`
	RateLimitWindow   string             `yaml:"rate_limit_window"`
	MaxEventsPerGroup int                `yaml:"max_events_per_group"`
	MaxEventsGlobal   int                `yaml:"max_events_global"`
	AlertStride       int                `yaml:"alert_stride"`
	AlertCooldown     string             `yaml:"alert_cooldown"`
	RetentionTTL      string             `yaml:"retention_ttl"`
	SweepInterval     string             `yaml:"sweep_interval"`
	MaxSamples        int                `yaml:"max_samples"`
}

func loadConfig(path string) (tracker.Config, error) {
	cfg := tracker.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if fc.SampleRates != nil {
		rates := make(map[tracker.Severity]float64, len(fc.SampleRates))
		for name, rate := range fc.SampleRates {
			rates[tracker.ParseSeverity(name)] = rate
		}
		cfg.SampleRates = rates
	}
	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{fc.RateLimitWindow, &cfg.RateLimitWindow},
		{fc.AlertCooldown, &cfg.AlertCooldown},
		{fc.RetentionTTL, &cfg.RetentionTTL},
		{fc.SweepInterval, &cfg.SweepInterval},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return cfg, fmt.Errorf("parse duration %q: %w", d.raw, err)
		}
		*d.dst = parsed
	}
	if fc.MaxEventsPerGroup > 0 {
		cfg.MaxEventsPerGroup = fc.MaxEventsPerGroup
	}
	if fc.MaxEventsGlobal > 0 {
		cfg.MaxEventsGlobal = fc.MaxEventsGlobal
	}
	if fc.AlertStride > 0 {
		cfg.AlertStride = fc.AlertStride
	}
	if fc.MaxSamples > 0 {
		cfg.MaxSamples = fc.MaxSamples
	}
	return cfg, nil
}

func main() {
	httpAddr := flag.String("http", ":8080", "HTTP listen address")
	natsURL := flag.String("nats", "", "NATS server URL for alert publishing (empty = disabled)")
	discordWebhook := flag.String("discord-webhook", "", "Discord webhook URL for alerts")
	dbPath := flag.String("db", "error-tracker.db", "sqlite path for alert history (empty = disabled)")
	configPath := flag.String("config", "", "optional YAML tuning file")
	historyDays := flag.Int("alert-history-days", 30, "days of alert history to keep")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Alert history store
	var store *db.DB
	if *dbPath != "" {
		store, err = db.Open(*dbPath)
		if err != nil {
			slog.Error("failed to open alert history database", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		slog.Info("alert history database ready", "path", *dbPath)
	}

	// Alert sinks. A missing NATS server degrades the service, it does not
	// stop it: alerts still reach the remaining sinks.
	var sinks sink.Multi
	if *natsURL != "" {
		natsSink, err := sink.NewNATS(*natsURL)
		if err != nil {
			slog.Warn("failed to connect to NATS, alerts will not be published", "error", err)
		} else {
			defer natsSink.Close()
			sinks = append(sinks, natsSink)
			slog.Info("connected to NATS", "url", *natsURL)
		}
	}
	sinks = append(sinks, sink.NewDiscord(*discordWebhook))
	if store != nil {
		sinks = append(sinks, sink.NewStore(store))
	}
	hub := sink.NewHub(nil)
	sinks = append(sinks, hub)

	tr := tracker.New(cfg, sinks)
	defer tr.Close()

	// Prometheus metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(api.NewStatsCollector(tr))

	// Nightly alert history pruning
	var sched *cron.Cron
	if store != nil {
		sched = cron.New()
		retention := time.Duration(*historyDays) * 24 * time.Hour
		sched.AddFunc("0 3 * * *", func() {
			removed, err := store.PruneBefore(time.Now().Add(-retention))
			if err != nil {
				slog.Error("alert history prune failed", "error", err)
				return
			}
			slog.Info("pruned alert history", "removed", removed)
		})
		sched.Start()
		defer sched.Stop()
	}

	// HTTP server
	handler := api.NewHandler(api.Config{
		Tracker:   tr,
		Store:     store,
		Hub:       hub,
		JWTSecret: []byte(os.Getenv("TRACKER_JWT_SECRET")),
	})
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{Addr: *httpAddr, Handler: mux}
	go func() {
		slog.Info("error-tracker listening", "addr", *httpAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
}
