// Package metrics exposes the Prometheus registry used by the wall counter.
// All metrics are defined in their respective packages (client, pagination,
// workerpool, report) to keep them next to the code that updates them.
//
// This package provides documentation and the HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the wall counter.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - vk_requests_total{method, status} (Counter): VK calls by method and outcome
//     (ok, HTTP status code, api_error, decode_error, network_error)
//   - vk_request_duration_seconds{method} (Histogram): call duration by method
//
// Retry Metrics (pkg/client):
//   - vk_retries_total{error_class} (Counter): retries by class (network, http, api, decode)
//   - vk_retry_backoff_seconds{error_class} (Histogram): linear backoff delays
//   - vk_retry_exhausted_total{method} (Counter): operations that spent their whole budget
//
// Pagination Metrics (pkg/pagination):
//   - vk_pages_fetched_total{method} (Counter): pages fetched
//   - vk_items_fetched_total{method} (Counter): posts / comments fetched
//
// Worker Pool Metrics (pkg/workerpool):
//   - vk_workerpool_active_tasks (Gauge): post pipelines currently running
//   - vk_workerpool_tasks_total{result} (Counter): finished pipelines by result
//
// Report Metrics (pkg/report):
//   - vk_report_errors_total{operation} (Counter): Redis summary store errors
//
// Example Prometheus Queries:
//
//   # Retry rate by class
//   sum by (error_class) (rate(vk_retries_total[5m]))
//
//   # P95 call latency
//   histogram_quantile(0.95, rate(vk_request_duration_seconds_bucket[5m]))
//
//   # Pool saturation
//   vk_workerpool_active_tasks
