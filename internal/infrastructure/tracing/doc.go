/*
Package tracing provides lightweight request tracing.

# Overview

Implements minimal span tracking for HTTP requests so a single load can
be followed from the API call through the coordinator's retries in the
structured logs. Follows OpenTelemetry concepts without the dependency.

# Usage

	tracer := tracing.New("backend", logger)
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "operation")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

# Trace Format

Traces use standard HTTP headers for propagation:
  - X-Trace-ID: unique identifier for the request flow
  - X-Span-ID: identifier for the current operation
*/
package tracing
