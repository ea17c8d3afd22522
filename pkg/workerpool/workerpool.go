// Package workerpool runs independent tasks with bounded concurrency.
//
// A fixed number of workers take task indices from a queue in submission
// order, so at most width tasks are in flight and every queued task is
// admitted as soon as a worker frees up. Results are returned in
// submission order regardless of completion order.
//
// Run is fail-fast but not fail-stop: it returns the first task error as
// soon as it is observed. Tasks already running, and tasks still queued,
// keep running in the background; their outcomes are discarded.
package workerpool

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the worker pool.
var (
	activeTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vk_workerpool_active_tasks",
		Help: "Number of tasks currently running in worker pools",
	})

	tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vk_workerpool_tasks_total",
		Help: "Total tasks finished by result",
	}, []string{"result"})
)

// ErrInvalidWidth is returned when width is below 1.
var ErrInvalidWidth = errors.New("workerpool: width must be >= 1")

// Task is one unit of work producing a T.
type Task[T any] func(ctx context.Context) (T, error)

type outcome[T any] struct {
	index int
	value T
	err   error
}

// Run executes tasks with at most width of them running concurrently and
// returns their results indexed by submission position. The first task
// error, or ctx expiry while waiting, ends Run without waiting for the
// remaining tasks.
func Run[T any](ctx context.Context, width int, tasks []Task[T]) ([]T, error) {
	if width < 1 {
		return nil, ErrInvalidWidth
	}

	results := make([]T, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}

	queue := make(chan int, len(tasks))
	for i := range tasks {
		queue <- i
	}
	close(queue)

	// Buffered for every task so abandoned workers never block.
	outcomes := make(chan outcome[T], len(tasks))

	for w := 0; w < min(width, len(tasks)); w++ {
		go worker(ctx, tasks, queue, outcomes)
	}

	for received := 0; received < len(tasks); received++ {
		select {
		case o := <-outcomes:
			if o.err != nil {
				return nil, o.err
			}
			results[o.index] = o.value
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return results, nil
}

func worker[T any](ctx context.Context, tasks []Task[T], queue <-chan int, outcomes chan<- outcome[T]) {
	for i := range queue {
		activeTasks.Inc()
		value, err := tasks[i](ctx)
		activeTasks.Dec()

		if err != nil {
			tasksTotal.WithLabelValues("error").Inc()
		} else {
			tasksTotal.WithLabelValues("success").Inc()
		}

		outcomes <- outcome[T]{index: i, value: value, err: err}
	}
}
