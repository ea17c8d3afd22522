// Package scan counts a target word across every comment of a VK wall.
//
// A scan lists all posts of the wall, then runs one pipeline per post on a
// bounded worker pool: the pipeline pages through the post's comments and
// sums the occurrences found in their texts. The per-post sums are reduced
// into one total. The first post whose comments cannot be fetched aborts
// the scan and no total is produced.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/vk-wall-counter/pkg/client"
	"github.com/Sternrassler/vk-wall-counter/pkg/config"
	"github.com/Sternrassler/vk-wall-counter/pkg/logging"
	"github.com/Sternrassler/vk-wall-counter/pkg/pagination"
	"github.com/Sternrassler/vk-wall-counter/pkg/vk"
	"github.com/Sternrassler/vk-wall-counter/pkg/wordcount"
	"github.com/Sternrassler/vk-wall-counter/pkg/workerpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Result is the outcome of a complete scan.
type Result struct {
	// Occurrences is the total number of target matches in comment texts.
	Occurrences int

	// Posts is the number of posts listed on the wall.
	Posts int

	// PostsWithComments is the number of posts whose comments were fetched.
	PostsWithComments int

	// Comments is the number of comments inspected.
	Comments int

	// Duration is the wall-clock time of the scan.
	Duration time.Duration
}

// postResult is the partial result of one post pipeline.
type postResult struct {
	occurrences int
	comments    int
	fetched     bool
}

// Scanner runs scans for one configuration.
type Scanner struct {
	cfg      config.Config
	posts    *pagination.Paginator
	comments *pagination.Paginator
	reporter logging.Reporter
	logger   zerolog.Logger
}

// New creates a Scanner on top of a single-attempt transport. Calls are
// retried according to cfg. A nil reporter discards progress events.
func New(cfg config.Config, transport client.Caller, reporter logging.Reporter) (*Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if reporter == nil {
		reporter = logging.NopReporter{}
	}

	caller := client.NewRetryingCaller(transport, client.RetryConfig{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
	}, reporter)

	return &Scanner{
		cfg:      cfg,
		posts:    pagination.New(caller, cfg.PostsPageSize, reporter),
		comments: pagination.New(caller, cfg.CommentsPageSize, reporter),
		reporter: reporter,
		logger:   log.With().Str("component", "scan").Logger(),
	}, nil
}

// NewHTTP creates a Scanner talking to the VK API over HTTP.
func NewHTTP(cfg config.Config, reporter logging.Reporter) (*Scanner, error) {
	vkClient, err := client.New(client.Config{
		BaseURL:     cfg.APIBaseURL,
		APIVersion:  cfg.APIVersion,
		AccessToken: cfg.AccessToken,
		Timeout:     cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create vk client: %w", err)
	}
	return New(cfg, vkClient, reporter)
}

// Run performs one scan.
func (s *Scanner) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	posts, err := pagination.CollectAs[vk.Post](ctx, s.posts, vk.WallGet(s.cfg.OwnerID))
	if err != nil {
		return Result{}, fmt.Errorf("collect posts: %w", err)
	}

	s.logger.Info().
		Int("posts", len(posts)).
		Int("concurrency", s.cfg.Concurrency).
		Msg("Processing posts")

	tasks := make([]workerpool.Task[postResult], len(posts))
	for i, post := range posts {
		tasks[i] = func(ctx context.Context) (postResult, error) {
			return s.processPost(ctx, post)
		}
	}

	partials, err := workerpool.Run(ctx, s.cfg.Concurrency, tasks)
	if err != nil {
		return Result{}, err
	}

	counts := make([]int, len(partials))
	result := Result{Posts: len(posts)}
	for i, p := range partials {
		counts[i] = p.occurrences
		result.Comments += p.comments
		if p.fetched {
			result.PostsWithComments++
		}
	}
	result.Occurrences = wordcount.Sum(counts)
	result.Duration = time.Since(start)

	return result, nil
}

// processPost is the pipeline for one post.
func (s *Scanner) processPost(ctx context.Context, post vk.Post) (postResult, error) {
	var res postResult

	if post.HasComments() {
		comments, err := pagination.CollectAs[vk.Comment](ctx, s.comments, vk.WallGetComments(s.cfg.OwnerID, post.ID))
		if err != nil {
			return postResult{}, fmt.Errorf("collect comments of post %d: %w", post.ID, err)
		}

		res.fetched = true
		res.comments = len(comments)
		for _, c := range comments {
			res.occurrences += wordcount.Count(c.Text, s.cfg.TargetWord)
		}
	}

	s.reporter.PostProcessed(post.ID, res.occurrences)
	return res, nil
}
