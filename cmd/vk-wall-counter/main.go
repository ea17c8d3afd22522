// Command vk-wall-counter counts how often a word appears in the comments
// of a VK community wall and prints the total.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/vk-wall-counter/pkg/config"
	"github.com/Sternrassler/vk-wall-counter/pkg/logging"
	"github.com/Sternrassler/vk-wall-counter/pkg/metrics"
	"github.com/Sternrassler/vk-wall-counter/pkg/report"
	"github.com/Sternrassler/vk-wall-counter/pkg/scan"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	os.Exit(run(context.Background(), os.Stdout, os.Stderr, config.Load))
}

// run executes one scan and returns the process exit code: 1 for
// configuration errors, 0 otherwise. Scan failures are logged and exit 0
// without printing a total.
func run(ctx context.Context, stdout, stderr io.Writer, load func() (config.Config, error)) int {
	cfg, err := load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: stderr,
	})
	logger := logging.NewLogger("main")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, logger)
		defer shutdown()
	}

	var publisher *report.Publisher
	if cfg.RedisURL != "" {
		redisClient, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, summary will not be published")
		} else {
			defer redisClient.Close()
			publisher = report.NewPublisher(redisClient, 0)
		}
	}

	scanner, err := scan.NewHTTP(cfg, logging.NewReporter(logging.NewLogger("progress")))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger.Info().
		Int64("owner_id", cfg.OwnerID).
		Str("target_word", cfg.TargetWord).
		Msg("Starting scan")

	start := time.Now()
	defer func() {
		logger.Info().Dur("elapsed", time.Since(start)).Msg("Run time")
	}()

	res, err := scanner.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Scan failed")
		return 0
	}

	logger.Info().
		Str("target_word", cfg.TargetWord).
		Int("occurrences", res.Occurrences).
		Int("posts", res.Posts).
		Int("comments", res.Comments).
		Msg("Scan complete")
	fmt.Fprintln(stdout, res.Occurrences)

	if publisher != nil {
		summary := report.NewSummary(cfg.OwnerID, cfg.TargetWord, res, time.Now())
		if err := publisher.Publish(ctx, summary); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish summary")
		} else {
			logger.Info().Str("key", summary.Key().String()).Msg("Summary published")
		}
	}

	return 0
}

// connectRedis accepts either a redis:// URL or a bare host:port address.
func connectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

func serveMetrics(addr string, logger zerolog.Logger) (shutdown func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()
	logger.Info().Str("addr", addr).Msg("Serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}
