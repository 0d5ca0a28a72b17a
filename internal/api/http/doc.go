// Package http holds the gate's gin handlers: the guarded redirect, the
// interstitial page and the read-only JSON API under /api/v1.
package http
