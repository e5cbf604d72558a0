/*
Package monitoring provides Prometheus metrics for the sandbox server.

# Overview

Each Metrics instance owns its own registry, so several servers (or tests)
can coexist in one process without duplicate registration panics.

# Metrics

- HTTP request count, latency and sizes
- Service calls and errors per component and operation
- Process executions by kind and outcome
- Browser engine liveness, launches and open pages
- Skill count and live factory sessions

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "skills", "create")
	// ... perform operation ...
	timer.Stop("success")
*/
package monitoring
