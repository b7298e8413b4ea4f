// Package database provides SQLite connectivity for the device relay.
//
// It manages the connection (WAL mode, busy timeout, single writer), forward
// migrations read from an fs.FS, and a cheap health query used by the store
// supervisor.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive-only: new columns must be nullable or carry a
// default, and nothing is dropped or renamed.
package database
