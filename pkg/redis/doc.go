// Package redis connects the application to Redis with startup retries and
// exposes a health probe. Redis backs the webhook deduplication store; the
// rest of the system treats it as optional infrastructure.
package redis
