// Package report publishes scan summaries to Redis.
//
// Only the derived summary of a finished scan is stored: the total, the
// counters and timing. Posts and comments themselves are never written,
// and a scan never reads a summary back.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/vk-wall-counter/pkg/scan"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNoSummary indicates no summary exists for the key.
	ErrNoSummary = errors.New("no summary")

	publishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vk_report_errors_total",
		Help: "Total number of summary store operation errors",
	}, []string{"operation"})
)

// DefaultTTL bounds how long a summary is kept.
const DefaultTTL = 7 * 24 * time.Hour

// Summary is the stored outcome of one scan.
type Summary struct {
	OwnerID           int64         `json:"owner_id"`
	TargetWord        string        `json:"target_word"`
	Occurrences       int           `json:"occurrences"`
	Posts             int           `json:"posts"`
	PostsWithComments int           `json:"posts_with_comments"`
	Comments          int           `json:"comments"`
	Duration          time.Duration `json:"duration"`
	FinishedAt        time.Time     `json:"finished_at"`
}

// NewSummary builds a Summary from a scan result.
func NewSummary(ownerID int64, targetWord string, res scan.Result, finishedAt time.Time) Summary {
	return Summary{
		OwnerID:           ownerID,
		TargetWord:        targetWord,
		Occurrences:       res.Occurrences,
		Posts:             res.Posts,
		PostsWithComments: res.PostsWithComments,
		Comments:          res.Comments,
		Duration:          res.Duration,
		FinishedAt:        finishedAt,
	}
}

// Key returns the SummaryKey the summary is stored under.
func (s Summary) Key() SummaryKey {
	return SummaryKey{OwnerID: s.OwnerID, TargetWord: s.TargetWord}
}

// Publisher stores summaries in Redis.
type Publisher struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewPublisher creates a Publisher. A ttl of zero uses DefaultTTL.
func NewPublisher(redisClient *redis.Client, ttl time.Duration) *Publisher {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Publisher{redis: redisClient, ttl: ttl}
}

// Publish stores s as the latest summary for its key and announces it on
// Channel().
func (p *Publisher) Publish(ctx context.Context, s Summary) error {
	data, err := json.Marshal(s)
	if err != nil {
		publishErrors.WithLabelValues("marshal").Inc()
		return fmt.Errorf("marshal summary: %w", err)
	}

	pipe := p.redis.TxPipeline()
	pipe.Set(ctx, s.Key().String(), data, p.ttl)
	pipe.Publish(ctx, Channel(), data)

	if _, err := pipe.Exec(ctx); err != nil {
		publishErrors.WithLabelValues("publish").Inc()
		return fmt.Errorf("store summary in redis: %w", err)
	}

	return nil
}

// Latest returns the stored summary for key.
// Returns ErrNoSummary if none exists.
func (p *Publisher) Latest(ctx context.Context, key SummaryKey) (*Summary, error) {
	data, err := p.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSummary
		}
		publishErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		publishErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("decode summary: %w", err)
	}

	return &s, nil
}
