/*
Package monitoring provides Prometheus-based metrics collection.

Tracks HTTP requests plus the pool's behavior: live sandbox count, launch
outcomes, task settlements and durations, queue depth, and reap counts.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	orchestrator.WithMetrics(metrics)

A nil *Metrics is a valid no-op collector, which keeps test wiring small.
*/
package monitoring
