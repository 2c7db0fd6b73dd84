package db

import "embed"

// migrationFS embeds the SQL migrations applied by Open.
//
//go:embed migrations/*.sql
var migrationFS embed.FS
