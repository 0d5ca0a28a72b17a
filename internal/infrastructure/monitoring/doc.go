/*
Package monitoring provides Prometheus metrics for the gate.

# Overview

Each Metrics value owns a private registry holding HTTP request metrics,
gate decision counters (classification, interception, redirect), gRPC call
metrics and the Go runtime collectors.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	metrics.RecordRedirect(false, "not_allowed")
*/
package monitoring
