package logging

import (
	"time"

	"github.com/rs/zerolog"
)

// Reporter receives progress and warning events from the fetch pipeline.
// Components call through it instead of writing to a logger directly so
// they can be exercised in tests without console output.
type Reporter interface {
	// RetryScheduled is called once per failed attempt that will be retried.
	RetryScheduled(method string, attempt, maxAttempts int, delay time.Duration, err error)

	// RetryExhausted is called when an operation used its whole attempt budget.
	RetryExhausted(method string, attempts int, err error)

	// TotalDiscovered is called once per pagination run with the total
	// announced on the first page.
	TotalDiscovered(method, scope string, total int)

	// PageFetched is called after every page with cumulative progress.
	PageFetched(method, scope string, fetched, total int)

	// PostProcessed is called when one post pipeline finished.
	PostProcessed(postID int64, occurrences int)
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) RetryScheduled(string, int, int, time.Duration, error) {}
func (NopReporter) RetryExhausted(string, int, error)                     {}
func (NopReporter) TotalDiscovered(string, string, int)                   {}
func (NopReporter) PageFetched(string, string, int, int)                  {}
func (NopReporter) PostProcessed(int64, int)                              {}

// ZerologReporter writes pipeline events as structured log lines.
type ZerologReporter struct {
	logger zerolog.Logger
}

// NewReporter creates a Reporter backed by logger.
func NewReporter(logger zerolog.Logger) *ZerologReporter {
	return &ZerologReporter{logger: logger}
}

func (r *ZerologReporter) RetryScheduled(method string, attempt, maxAttempts int, delay time.Duration, err error) {
	r.logger.Warn().
		Err(err).
		Str("method", method).
		Int("attempt", attempt).
		Int("max_attempts", maxAttempts).
		Dur("delay", delay).
		Msg("Call failed, retrying")
}

func (r *ZerologReporter) RetryExhausted(method string, attempts int, err error) {
	r.logger.Error().
		Err(err).
		Str("method", method).
		Int("attempts", attempts).
		Msg("Call failed after all attempts")
}

func (r *ZerologReporter) TotalDiscovered(method, scope string, total int) {
	// Empty comment threads are the common case and only add noise.
	if total == 0 {
		r.logger.Debug().Str("method", method).Str("scope", scope).Msg("Nothing to fetch")
		return
	}
	r.logger.Info().
		Str("method", method).
		Str("scope", scope).
		Int("total", total).
		Msg("Total items announced")
}

func (r *ZerologReporter) PageFetched(method, scope string, fetched, total int) {
	r.logger.Info().
		Str("method", method).
		Str("scope", scope).
		Int("fetched", fetched).
		Int("total", total).
		Msg("Page fetched")
}

func (r *ZerologReporter) PostProcessed(postID int64, occurrences int) {
	r.logger.Debug().
		Int64("post_id", postID).
		Int("occurrences", occurrences).
		Msg("Post processed")
}
