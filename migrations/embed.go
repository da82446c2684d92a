// Package migrations holds lanlight's SQLite schema, one
// YYYYMMDD_HHMMSS_name.{up,down}.sql pair per change.
package migrations

import "embed"

// FS is passed to database.DB.Migrate.
//
//go:embed *.sql
var FS embed.FS
