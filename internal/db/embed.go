package db

import "embed"

// EmbedMigrations contains the embedded goose migrations of the template store.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
