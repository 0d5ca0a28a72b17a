// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Gate decisions (interception outcomes, allowed redirects) log at debug.
// Rejected redirect targets log at info with the reason and host, never the
// full candidate URL.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Server starting", zap.String("addr", ":8000"))
//	logger.Info("Redirect rejected", logging.Reason("not_allowed"), logging.Host(host))
package logging
