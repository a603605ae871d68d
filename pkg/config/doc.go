// Package config loads typed configuration structs from environment
// variables, with a .env file picked up automatically in development.
//
// Every component declares its own config struct with `env` tags and loads it
// independently:
//
//	type PostgresConfig struct {
//		ConnString string `env:"DATABASE_URL,required"`
//	}
//
//	var cfg PostgresConfig
//	config.MustLoad(&cfg)
//
// Loading is cached per struct type, so components can load their config at
// construction time without re-reading the environment.
package config
