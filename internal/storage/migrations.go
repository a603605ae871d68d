package storage

import "embed"

// Migrations is the embedded schema, applied with pg.Migrate at startup.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the SQL files.
const MigrationsDir = "migrations"
