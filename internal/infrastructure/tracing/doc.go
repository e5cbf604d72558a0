/*
Package tracing provides lightweight request tracing.

# Overview

Every inbound request gets a trace id (taken from X-Trace-ID when the caller
sends one) and a root span. Handlers open child spans around component calls.
Finished spans are handed to a buffered collector that logs them through zap,
so tracing never blocks a request.

# Usage

	tracer := tracing.New("sandbox", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))

	err := tracer.Run(ctx, "browser.goto", func(ctx context.Context) error {
		return manager.Goto(ctx, req)
	})

# Headers

- X-Trace-ID: identifier for the whole request flow
- X-Span-ID: identifier for the current operation
*/
package tracing
