// Package metrics provides the centralized Prometheus metrics reference for
// the route miner. All metrics are defined in their respective packages
// (query, schedule, directions, results, batch) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the miner.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Resolver Metrics (pkg/query):
//   - miner_rows_resolved_total{outcome} (Counter): Input rows by outcome (ok, invalid)
//   - miner_specs_resolved_total (Counter): Query specs produced by range expansion
//
// Scheduler Metrics (pkg/schedule):
//   - miner_dispatches_total{outcome} (Counter): Dispatched tasks by outcome (success, failure, estimate)
//   - miner_dispatch_wait_seconds (Histogram): Time spent waiting for target instants
//   - miner_rate_gate_wait_seconds (Histogram): Time spent blocked on the per-credential rate gate
//   - miner_dispatch_skew_seconds (Histogram): Lateness observed when a target instant was already past
//
// Directions Client Metrics (pkg/directions):
//   - miner_api_requests_total{endpoint, status} (Counter): API requests by endpoint and outcome
//   - miner_api_request_duration_seconds{endpoint} (Histogram): API request duration
//   - miner_api_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - miner_api_retries_total{error_class} (Counter): Retry attempts by error class
//   - miner_api_retry_backoff_seconds{error_class} (Histogram): Backoff duration per retry
//   - miner_api_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Export Metrics (pkg/results):
//   - miner_records_exported_total{format} (Counter): Exported result records by format (tabular, dump)
//
// Batch Metrics (pkg/batch):
//   - miner_batches_total{outcome} (Counter): Completed batches by outcome (ok, fatal)
//   - miner_batch_duration_seconds (Histogram): Wall-clock batch duration
//
// Example Prometheus Queries:
//
//   # Dispatch failure ratio
//   sum(rate(miner_dispatches_total{outcome="failure"}[5m])) /
//   sum(rate(miner_dispatches_total[5m]))
//
//   # P95 rate gate wait
//   histogram_quantile(0.95, rate(miner_rate_gate_wait_seconds_bucket[5m]))
//
//   # API error rate by class
//   rate(miner_api_errors_total[5m])
