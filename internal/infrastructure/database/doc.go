// Package database provides SQLite connectivity for lanlight.
//
// It opens the database with WAL mode and a busy timeout, and applies
// schema migrations from any fs.FS (the migrations package embeds ours).
//
// The only tables lanlight writes are diagnostic history (see the discovery
// package); nothing read back from SQLite seeds the in-memory registries.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.{up,down}.sql and
// are additive: new columns must be nullable or carry a default.
package database
