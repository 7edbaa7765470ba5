// Package database opens the SQLite file holding the device registry and
// state history, and applies schema migrations to it.
//
// Connections run with foreign keys on and a busy timeout; file databases
// also use WAL. Migration files are named
// YYYYMMDD_HHMMSS_description.up.sql with an optional .down.sql twin and
// are supplied through MigrationsFS, which the migrations package fills
// on import:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//	err = db.Migrate(ctx)
package database
