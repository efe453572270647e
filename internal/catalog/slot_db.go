package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"             // registers the "sqlite" database/sql driver
)

type dialect struct {
	createTable string
	selectSlot  string
	upsertSlot  string
}

var (
	postgresDialect = dialect{
		createTable: `CREATE TABLE IF NOT EXISTS state (
			bucket  TEXT PRIMARY KEY,
			payload BYTEA NOT NULL
		)`,
		selectSlot: `SELECT payload FROM state WHERE bucket = $1`,
		upsertSlot: `
			INSERT INTO state (bucket, payload)
			VALUES ($1, $2)
			ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload
		`,
	}

	sqliteDialect = dialect{
		createTable: `CREATE TABLE IF NOT EXISTS state (
			bucket  TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		)`,
		selectSlot: `SELECT payload FROM state WHERE bucket = ?`,
		upsertSlot: `
			INSERT INTO state (bucket, payload)
			VALUES (?, ?)
			ON CONFLICT (bucket) DO UPDATE SET payload = excluded.payload
		`,
	}
)

// DBSlot stores each key as one row of the state table.
type DBSlot struct {
	db *sql.DB
	d  dialect
}

// NewPostgresSlot wraps an open pgx-backed *sql.DB and ensures the state table.
func NewPostgresSlot(ctx context.Context, db *sql.DB) (*DBSlot, error) {
	return newDBSlot(ctx, db, postgresDialect)
}

// NewSQLiteSlot wraps an open sqlite *sql.DB and ensures the state table.
func NewSQLiteSlot(ctx context.Context, db *sql.DB) (*DBSlot, error) {
	return newDBSlot(ctx, db, sqliteDialect)
}

// OpenPostgresSlot connects to dsn and verifies the connection.
func OpenPostgresSlot(ctx context.Context, dsn string) (*DBSlot, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := withTimeout(ctx, pingTimeout, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresSlot(ctx, db)
}

// OpenSQLiteSlot opens (creating if needed) the database file at path.
func OpenSQLiteSlot(ctx context.Context, path string) (*DBSlot, error) {
	if path == "" {
		path = "chembase.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return NewSQLiteSlot(ctx, db)
}

func newDBSlot(ctx context.Context, db *sql.DB, d dialect) (*DBSlot, error) {
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := db.ExecContext(ctx, d.createTable)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &DBSlot{db: db, d: d}, nil
}

func (s *DBSlot) Close() error { return s.db.Close() }

func (s *DBSlot) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, s.db.PingContext)
}

func (s *DBSlot) Read(ctx context.Context, key string) ([]byte, error) {
	var payload []byte

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, s.d.selectSlot, key).Scan(&payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *DBSlot) Write(ctx context.Context, key string, data []byte) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, s.d.upsertSlot, key, data)
		return err
	})
}
