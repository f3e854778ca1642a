// Package config loads runtime configuration for the NoteKeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables prefixed NOTEKEEPER_, optionally read from a
//     .env file (NOTEKEEPER_ENV_FILE, default ".env").
//  3. Optional JSON file selected with -c / -config or NOTEKEEPER_CONFIG.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-b string   backend mode: memory or postgres
//	-d string   Postgres DSN
//	-l string   local database file
//	-o string   download directory
//	-p string   preview server address
//	-r int      download attempts
//	-f string   log format: json, text or zap
//
// # JSON schema
//
// Durations use timex.Duration, so "15m" and integer nanoseconds both work:
//
//	{
//	  "backend": "postgres",
//	  "database_dsn": "postgres://localhost/notekeeper",
//	  "session_secret": "change-me",
//	  "cache_expiration": "1h",
//	  "sweep_interval": "15m",
//	  "s3": {"bucket": "notes", "base_endpoint": "http://127.0.0.1:9000"}
//	}
package config
