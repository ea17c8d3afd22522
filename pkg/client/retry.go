package client

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/vk-wall-counter/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	vkRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vk_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	vkRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vk_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 3, 4, 5, 10},
	}, []string{"error_class"})

	vkRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vk_retry_exhausted_total",
		Help: "Total number of operations that exhausted their retry budget by method",
	}, []string{"method"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is multiplied by the failed attempt number (linear backoff).
	BaseDelay time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
	}
}

// Backoff returns the delay to wait after the given failed attempt.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	return c.BaseDelay * time.Duration(attempt)
}

// RetryingCaller wraps a Caller and retries every failed attempt with
// linear backoff. Network, HTTP, decode and VK API errors are all
// treated as transient.
type RetryingCaller struct {
	next     Caller
	config   RetryConfig
	reporter logging.Reporter
	wait     func(ctx context.Context, d time.Duration) error
}

// NewRetryingCaller creates a RetryingCaller. A nil reporter discards events.
func NewRetryingCaller(next Caller, cfg RetryConfig, reporter logging.Reporter) *RetryingCaller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetryConfig().MaxAttempts
	}
	if reporter == nil {
		reporter = logging.NopReporter{}
	}
	return &RetryingCaller{
		next:     next,
		config:   cfg,
		reporter: reporter,
		wait:     sleepContext,
	}
}

// Call invokes op until it succeeds or MaxAttempts attempts have failed.
// On exhaustion it returns a *FetchError carrying the last error.
func (r *RetryingCaller) Call(ctx context.Context, op Operation) (*PageResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		page, err := r.next.Call(ctx, op)
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("method", op.Method).
					Int("attempt", attempt).
					Msg("Call succeeded after retry")
			}
			return page, nil
		}

		lastErr = err

		// No wait after the final attempt.
		if attempt == r.config.MaxAttempts {
			break
		}

		errorClass := string(Classify(err))
		delay := r.config.Backoff(attempt)

		vkRetriesTotal.WithLabelValues(errorClass).Inc()
		vkRetryBackoffSeconds.WithLabelValues(errorClass).Observe(delay.Seconds())
		r.reporter.RetryScheduled(op.Method, attempt, r.config.MaxAttempts, delay, err)

		if err := r.wait(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrContextCancelled, op.Method, err)
		}
	}

	vkRetryExhaustedTotal.WithLabelValues(op.Method).Inc()
	r.reporter.RetryExhausted(op.Method, r.config.MaxAttempts, lastErr)

	return nil, &FetchError{
		Method:   op.Method,
		Attempts: r.config.MaxAttempts,
		Err:      lastErr,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
