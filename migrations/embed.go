// Package migrations embeds the audit database schema.
package migrations

import "embed"

// FS holds the numbered up/down SQL files read by golang-migrate.
//
//go:embed *.sql
var FS embed.FS
