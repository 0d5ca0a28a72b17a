// Package config provides 12-factor configuration management for the gate.
//
// Configuration is loaded from environment variables with sensible defaults.
// An optional rules file (GATE_RULES_FILE, YAML or TOML) appends allowed
// hosts, excluded paths and extra browser signatures.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - GRPC: gRPC health endpoint settings
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting of the redirect endpoint
//   - Gate: Detection, interception and allow-list settings
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Gate listening on %s\n", cfg.Address())
//
// Environment Variables:
//   - PORT, HOST, GRPC_ADDR, GRPC_ENABLED
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - GATE_ALLOWED_HOSTS, GATE_EXCLUDED_PATHS, GATE_INTERSTITIAL_PATH,
//     GATE_GUARD_PATH, GATE_LANDING_PATH, GATE_ROOT_REDIRECT, GATE_MODE
//   - GATE_DETECT_LEGACY_WEBVIEW, GATE_DETECT_IOS_WEBVIEW
//   - GATE_FALLBACK_DELAY, GATE_ANDROID_PACKAGE, GATE_MESSAGE, GATE_RULES_FILE,
//     GATE_SITE_DIR
package config
