// Package httpserver wraps net/http's server with graceful shutdown,
// env-driven configuration and health probes. Run blocks until the context
// is canceled or a termination signal arrives, then drains in-flight
// requests within the shutdown timeout.
package httpserver
