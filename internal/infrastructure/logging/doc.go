// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for log collectors
//   - Development: colored console output
//
// Components receive a *zap.Logger and fall back to a no-op logger when none
// is supplied, so tests can construct them without logging setup.
//
// Example Usage:
//
//	logger := logging.NewFromLevel("info", false)
//	logger.Info("Server starting", zap.String("port", "8080"))
//	router.Use(logging.GinMiddleware(logger.Logger))
package logging
