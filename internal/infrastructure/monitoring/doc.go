/*
Package monitoring provides Prometheus-based metrics collection.

# Overview

Tracks HTTP requests, extension lifecycle events, isolation sessions and
WebSocket connections for the extension host backend.

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record lifecycle metrics
	metrics.RecordInstall()
	metrics.SetActive(3)

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
