package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/shiftwatch/shiftwatch/internal/config"
	"github.com/shiftwatch/shiftwatch/internal/database"
	"github.com/shiftwatch/shiftwatch/internal/logging"
	"github.com/shiftwatch/shiftwatch/internal/notify"
	"github.com/shiftwatch/shiftwatch/internal/repository"
	"github.com/shiftwatch/shiftwatch/internal/reward"
	"github.com/shiftwatch/shiftwatch/internal/service"
	"github.com/shiftwatch/shiftwatch/internal/source"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration from environment variables
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.App.LogLevel, cfg.App.LogFormat, cfg.App.IsDevelopment())
	logger.Info().Str("environment", cfg.App.Environment).Msg("starting shiftwatch")

	// Initialize database connection
	db, err := database.NewDB(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing database connection")
		}
	}()

	rules, err := reward.ParseRules(cfg.Rewards.Keywords)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid reward keyword configuration")
	}

	store := repository.NewCodeStore(db.Postgres)
	engine := reward.NewEngine(rules)
	notifier := notify.New(notify.Options{
		Destinations: cfg.Notify.WebhookURLs,
		Threshold:    cfg.Notify.Threshold,
		MaxAttempts:  cfg.Notify.MaxAttempts,
		BackoffBase:  cfg.Notify.BackoffBase,
		MinInterval:  cfg.Notify.MinInterval,
		SampleSize:   cfg.Notify.SampleSize,
		Timeout:      cfg.Notify.Timeout,
		RedeemURL:    cfg.Notify.RedeemURL,
	}, logger)
	svc := service.NewIngestService(store, engine, logger)

	sources := make([]source.Source, 0, len(cfg.Sources.HTMLURLs)+len(cfg.Sources.RedditSubs))
	for _, url := range cfg.Sources.HTMLURLs {
		sources = append(sources, source.NewHTMLSource(url, cfg.Sources.Timeout, cfg.Sources.ContextLimit))
	}
	for _, sub := range cfg.Sources.RedditSubs {
		sources = append(sources, source.NewRedditSource(sub, cfg.Sources.Timeout, cfg.Sources.ContextLimit))
	}
	if len(sources) == 0 {
		logger.Fatal().Msg("no sources configured, set SOURCE_HTML_URLS and/or SOURCE_REDDIT_SUBS")
	}

	if cfg.App.RunInterval <= 0 {
		if err := runOnce(ctx, svc, sources, notifier, cfg, logger); err != nil {
			os.Exit(1)
		}
		return
	}

	runForever(ctx, cancel, svc, sources, notifier, cfg, store, logger)
}

// runOnce executes a single pipeline pass and writes the run summary file.
func runOnce(ctx context.Context, svc *service.IngestService, sources []source.Source, notifier service.Notifier, cfg *config.Config, logger zerolog.Logger) error {
	summary, err := svc.Run(ctx, sources, notifier)
	if err != nil {
		logger.Error().Err(err).Msg("run failed")
		return err
	}

	logger.Info().
		Int("codes_found", summary.CodesFound).
		Int("sources_checked", summary.SourcesChecked).
		Int("sources_failed", summary.SourcesFailed).
		Float64("duration_seconds", summary.DurationSecs).
		Msg("run completed")

	if cfg.App.SummaryPath != "" {
		if err := writeSummary(cfg.App.SummaryPath, summary); err != nil {
			logger.Warn().Err(err).Str("path", cfg.App.SummaryPath).Msg("failed to write run summary")
		}
	}
	return nil
}

func writeSummary(path string, summary interface{}) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// runForever repeats the pipeline on the configured interval while serving
// health and metrics endpoints until interrupted.
func runForever(ctx context.Context, cancel context.CancelFunc, svc *service.IngestService, sources []source.Source, notifier service.Notifier, cfg *config.Config, store *repository.CodeStore, logger zerolog.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		hostname, _ := os.Hostname()
		w.WriteHeader(http.StatusOK)
		response := fmt.Sprintf(`{"status":"ok","service":"shiftwatch","hostname":"%s"}`, hostname)
		w.Write([]byte(response))
	})

	mux.HandleFunc("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Stats(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","message":"postgres unavailable"}`))
			return
		}
		lastFound := ""
		if latest, err := store.ListActive(r.Context(), 1); err == nil && len(latest) > 0 {
			lastFound = latest[0].DiscoveredAt.UTC().Format(time.RFC3339)
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","total_codes":%d,"active_codes":%d,"last_code_date":%q}`,
			stats.TotalCount, stats.ActiveCount, lastFound)
	})

	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:           cfg.Server.GetServerAddr(),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
		// Use h2c so we can serve HTTP/2 without TLS
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("starting health/metrics server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.App.RunInterval)
	defer ticker.Stop()

	// First run happens immediately, then on every tick.
	runOnce(ctx, svc, sources, notifier, cfg, logger)
	for {
		select {
		case <-ticker.C:
			runOnce(ctx, svc, sources, notifier, cfg, logger)
		case <-quit:
			logger.Info().Msg("shutting down")
			// Cancel the in-flight run; committed batches stay, nothing
			// uncommitted is notified.
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server forced to shutdown")
			}
			logger.Info().Msg("exited gracefully")
			return
		}
	}
}
