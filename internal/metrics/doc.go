// Package metrics tracks process-lifetime request statistics. A buffered
// collector keeps accounting off the request path, the stats store feeds the
// /health report, and a Prometheus registry mirrors the counters for
// scraping at /metrics.
package metrics
