// Package db keeps a review log of what the clients published: fused
// position estimates and located radar echoes. The log is write-only from
// the pipelines' point of view; live state is never restored from it.
package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
	runID string
}

// NewDB opens the sqlite database at path and brings its schema up to date.
// Every DB gets a fresh run id so rows from different processes can be told
// apart.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// each connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	}

	if _, err := sqlDB.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	db := &DB{DB: sqlDB, runID: uuid.NewString()}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// RunID identifies this process in every row it writes.
func (db *DB) RunID() string {
	return db.runID
}
