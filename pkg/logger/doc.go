// Package logger builds the application's slog.Logger.
//
// The factory produces JSON output for production and text for development,
// and wraps the handler with a decorator that pulls request-scoped values
// (club ID, subject ID) out of the context on every log call. Attr helpers
// keep the domain's log keys consistent across packages.
package logger
