// Package migrations embeds the Postgres schema of the self-hosted backend.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
