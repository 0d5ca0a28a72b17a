// Package middleware provides the gate's gin middleware.
//
// Middleware stack includes:
//   - Intercept: routes embedded-browser visitors to the interstitial
//   - RateLimit: per-IP token bucket limiting with idle-client eviction
//   - CORS: cross-origin access to the read-only JSON API
//   - RequestLogger: zap request logging without query strings
//
// Example Usage:
//
//	router.Use(middleware.Intercept(policy, router, logger, metrics))
//	api := router.Group("/api", middleware.CORS(middleware.DefaultCORSConfig()))
//	router.GET("/open", middleware.RateLimit(middleware.DefaultRateLimitConfig()), handlers.Open)
package middleware
