// Package migrations embeds the goose SQL migration files so the server can
// migrate on startup and integration tests can build their schema.
package migrations

import "embed"

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
