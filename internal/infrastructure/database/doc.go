// Package database opens the daemon's local SQLite store and runs its
// schema migrations.
//
// The store holds a single logical record: the persisted backend session
// (auth token plus user blob), so the panel survives restarts without
// re-authenticating. The handle keeps exactly one connection open for the
// process lifetime and restricts the file to owner read/write, since the
// token lives inside.
//
// Migration scripts are embedded by the top-level migrations package, which
// registers its embed.FS with this one at init time. Files are named
// date_sequence_label.up.sql with an optional matching .down.sql.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
