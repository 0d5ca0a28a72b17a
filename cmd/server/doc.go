// Package main is the entry point for the in-app browser gate.
//
// The gate detects visitors arriving from embedded browsers (Instagram,
// Facebook, Telegram and similar apps), routes them through an interstitial
// that offers to reopen the page in the system browser, and performs the
// final hop through an allow-listed redirect.
//
// Commands:
//   - serve (default): run the HTTP gate and optional gRPC health endpoint
//   - classify <ua>: print the embedded-browser verdict for a User-Agent
//   - resolve <url>: check a redirect target against the allow-list
//   - healthcheck: check a running gate over gRPC
//
// Configuration:
//   - Environment variables (12-factor), see internal/infrastructure/config
//   - CLI flags override environment variables
//
// Usage:
//
//	# Production mode
//	GATE_ALLOWED_HOSTS=example.com,*.example.com ./server serve --port 8000
//
//	# Development mode (colored logs, debug level)
//	./server --dev
//
//	./server classify "Mozilla/5.0 ... Instagram 312.0"
//	./server resolve https://evil.example/ --json
package main
