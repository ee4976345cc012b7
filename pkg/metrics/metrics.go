// Package metrics provides the central Prometheus registry reference for
// commentpulse. Metrics are defined in the packages that own the events
// (fetcher, walker, throttle, store, classify, ingest) to keep modularity
// and avoid circular dependencies.
//
// This package documents all available metrics in one place.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by commentpulse.
// All metrics are registered automatically via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Fetch Metrics (pkg/fetcher):
//   - commentpulse_fetch_requests_total{outcome} (Counter): attempts by outcome
//   - commentpulse_fetch_duration_seconds (Histogram): full fetch duration including retries
//   - commentpulse_fetch_retries_total (Counter): retry attempts
//   - commentpulse_fetch_exhausted_total (Counter): fetches that exhausted all attempts
//
// Walk Metrics (pkg/walker):
//   - commentpulse_walk_pages_total{kind} (Counter): pages fetched (comments, replies)
//   - commentpulse_walk_records_total (Counter): records produced
//   - commentpulse_walk_items_rejected_total (Counter): malformed items rejected
//   - commentpulse_walk_reply_failures_total (Counter): reply walks degraded to zero children
//
// Throttle Metrics (pkg/throttle):
//   - commentpulse_throttle_pauses_total (Counter): inter-page pauses
//
// Store Metrics (pkg/store):
//   - commentpulse_store_misses_total (Counter): reads of absent keys
//   - commentpulse_store_errors_total{operation} (Counter): store operation errors
//
// Classification Metrics (pkg/classify):
//   - commentpulse_classify_requests_total{outcome} (Counter): classification calls
//
// Run Metrics (pkg/ingest):
//   - commentpulse_runs_total{status} (Counter): runs by status (success, failure, rejected)
//   - commentpulse_run_duration_seconds (Histogram): run duration
//
// Example Prometheus Queries:
//
//   # Fetch retry rate
//   rate(commentpulse_fetch_retries_total[5m]) / rate(commentpulse_fetch_requests_total[5m])
//
//   # Run failure ratio
//   sum(rate(commentpulse_runs_total{status="failure"}[15m])) /
//   sum(rate(commentpulse_runs_total[15m]))
//
//   # P95 run duration
//   histogram_quantile(0.95, rate(commentpulse_run_duration_seconds_bucket[15m]))
//
//   # Reply degradation
//   rate(commentpulse_walk_reply_failures_total[15m])
