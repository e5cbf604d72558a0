// Package middleware provides the HTTP middleware in front of the sandbox API.
//
//   - CORS: cross-origin access for browser based agents (gin-contrib/cors)
//   - RateLimit: per-IP token buckets, idle clients evicted
//   - GlobalRateLimit: one bucket for the whole server
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
