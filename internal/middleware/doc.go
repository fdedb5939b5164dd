// Package middleware provides HTTP middleware for the media toolkit server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labeled by route template
//   - CORS headers and preflight handling
//   - Per-client rate limiting of download requests
//   - Panic recovery with a JSON error envelope
package middleware
