package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Sternrassler/vk-wall-counter/pkg/client"
	"github.com/Sternrassler/vk-wall-counter/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for pagination runs.
var (
	vkPagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vk_pages_fetched_total",
		Help: "Total pages fetched by method",
	}, []string{"method"})

	vkItemsFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vk_items_fetched_total",
		Help: "Total items fetched by method",
	}, []string{"method"})
)

// DefaultPageSize is the largest page VK list methods return.
const DefaultPageSize = 100

// Paginator drives a Caller through offset pages of one collection.
// Pages are fetched strictly in sequence.
type Paginator struct {
	caller   client.Caller
	pageSize int
	reporter logging.Reporter
	logger   zerolog.Logger
}

// New creates a Paginator. A pageSize below 1 falls back to DefaultPageSize;
// a nil reporter discards events.
func New(caller client.Caller, pageSize int, reporter logging.Reporter) *Paginator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if reporter == nil {
		reporter = logging.NopReporter{}
	}

	return &Paginator{
		caller:   caller,
		pageSize: pageSize,
		reporter: reporter,
		logger:   log.With().Str("component", "pagination").Logger(),
	}
}

// PageSize returns the number of items requested per call.
func (p *Paginator) PageSize() int {
	return p.pageSize
}

// Collect fetches every item of the collection described by op, adding
// count and offset parameters. The total announced on the first page is
// authoritative for the whole run; offsets at or beyond it are never
// requested. Any call error abandons the run and is returned as is.
func (p *Paginator) Collect(ctx context.Context, op client.Operation) ([]json.RawMessage, error) {
	start := time.Now()
	scope := op.Params.Encode()
	count := strconv.Itoa(p.pageSize)

	var items []json.RawMessage
	total := -1

	for offset := 0; total < 0 || offset < total; offset += p.pageSize {
		page, err := p.caller.Call(ctx, op.With("count", count).With("offset", strconv.Itoa(offset)))
		if err != nil {
			p.logger.Debug().
				Err(err).
				Str("method", op.Method).
				Str("scope", scope).
				Int("offset", offset).
				Msg("Pagination run abandoned")
			return nil, err
		}

		if total < 0 {
			total = max(page.Count, 0)
			p.reporter.TotalDiscovered(op.Method, scope, total)
			items = make([]json.RawMessage, 0, total)
			if total == 0 {
				return items, nil
			}
		}

		items = append(items, page.Items...)
		vkPagesFetchedTotal.WithLabelValues(op.Method).Inc()
		vkItemsFetchedTotal.WithLabelValues(op.Method).Add(float64(len(page.Items)))
		p.reporter.PageFetched(op.Method, scope, len(items), total)

		if len(items) >= total {
			break
		}
		if len(page.Items) < p.pageSize {
			p.logger.Warn().
				Str("method", op.Method).
				Str("scope", scope).
				Int("offset", offset).
				Int("received", len(page.Items)).
				Int("fetched", len(items)).
				Int("total", total).
				Msg("Short page")
		}
	}

	p.logger.Debug().
		Str("method", op.Method).
		Str("scope", scope).
		Int("items", len(items)).
		Int("total", total).
		Dur("duration", time.Since(start)).
		Msg("Pagination run complete")

	return items, nil
}

// CollectAs runs Collect and decodes every item into T.
func CollectAs[T any](ctx context.Context, p *Paginator, op client.Operation) ([]T, error) {
	raw, err := p.Collect(ctx, op)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(raw))
	for i, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, fmt.Errorf("decode %s item %d: %w", op.Method, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
