// Package migrations embeds the goose SQL migrations so the server binary
// can bring the schema up to date at startup without a separate migrations
// directory on disk.
package migrations

import "embed"

// FS holds the embedded migration files.
//
//go:embed *.sql
var FS embed.FS
