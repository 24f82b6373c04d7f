// Package database owns the CSE362 SQLite handle and its schema migrations.
//
// Every connection enforces foreign keys, so deleting a user removes that
// user's sessions. The pool holds a single connection; SQLite has one
// writer and the session store runs short read-modify-write transactions.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are "YYYYMMDD_HHMMSS_name.up.sql" files with an optional
// matching ".down.sql", applied in version order, one transaction each.
// Import the migrations package for its side effect to register them.
package database
