// Package binder decodes HTTP request bodies into typed request structs.
//
// The JSON binder is strict: unknown fields, trailing data and oversized
// bodies are rejected, and string fields are stripped of control characters
// before the handler sees them. Binding errors wrap sentinel errors so
// handlers can map them to 400 responses with errors.Is.
package binder
