// Package db owns the sqlite connection and schema migrations for the
// report store. The schema itself lives in db/migrations; this package only
// opens the database with the right pragmas and runs golang-migrate.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sql handle so migration helpers can hang off it.
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the sqlite database at path and applies the
// connection pragmas. Schema setup is a separate step; see MigrateUp.
func NewDB(path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// WAL keeps readers from blocking the writer; the busy timeout gives
	// concurrent writers a chance before SQLITE_BUSY surfaces.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := handle.Exec(pragma); err != nil {
			handle.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	return &DB{handle}, nil
}
