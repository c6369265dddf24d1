// Package store is the agent's local persistence layer: cached snapshots of
// reference entities, the registration queue (including records created while
// offline), and inspection-photo blobs. It is a cache, not a system of
// record: reads never fail to the caller and write failures are logged and
// swallowed, accepting potential loss on the next restart.
package store

import (
	"context"
	"database/sql"
	"log"

	"github.com/danielmvs/fleetsync/internal/agent/store/migrations"
	"github.com/danielmvs/fleetsync/internal/logging"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	log logging.Logger
}

// RunMigrations applies the embedded schema migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		log.Fatal("failed to set goose dialect:", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the local SQLite database at dsn and
// migrates it to the current schema.
func Open(ctx context.Context, dsn string, logger logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		return nil, err
	}

	return &Store{db: db, log: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
