// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool with
// startup retries, goose migrations run from an embedded filesystem, and the
// error helpers the storage code uses to classify constraint violations.
package pg
