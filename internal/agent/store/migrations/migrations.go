// Package migrations embeds the agent's local-database schema migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
