// Package ghostscan holds assets embedded at the repository root, currently
// the SQL migrations applied by the migrate subcommand.
package ghostscan

import "embed"

// Migrations contains the goose SQL migration files.
//
//go:embed migrations/*.sql
var Migrations embed.FS
