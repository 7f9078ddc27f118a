package database

import "embed"

// MigrationsFS embeds the SQL migration files so the migrate command
// does not depend on the source tree layout at runtime.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
