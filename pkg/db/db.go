package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createTableQuery = `CREATE TABLE IF NOT EXISTS patchnotes_cursor (
	repository        TEXT PRIMARY KEY,
	last_announced_id TEXT NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	selectQuery = "SELECT last_announced_id FROM patchnotes_cursor WHERE repository = $1;"
	upsertQuery = "INSERT INTO patchnotes_cursor (repository, last_announced_id, updated_at) VALUES ($1, $2, now()) ON CONFLICT(repository) DO UPDATE SET last_announced_id=excluded.last_announced_id, updated_at=excluded.updated_at;"
)

// DB stores the patch notes cursor of one repository in Postgres.
type DB struct {
	pool       *pgxpool.Pool
	repository string
}

func NewDB(pool *pgxpool.Pool, repository string) *DB {
	return &DB{pool: pool, repository: repository}
}

func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, createTableQuery)
	return err
}

func (db *DB) LastAnnounced(ctx context.Context) (id string, err error) {
	rows, _ := db.pool.Query(ctx, selectQuery, db.repository)
	id, err = pgx.CollectOneRow(rows, pgx.RowTo[string])
	if err != nil && errors.Is(err, pgx.ErrNoRows) {
		err = nil
	}
	return
}

func (db *DB) SetLastAnnounced(ctx context.Context, id string) error {
	_, err := db.pool.Exec(ctx, upsertQuery, db.repository, id)
	return err
}
