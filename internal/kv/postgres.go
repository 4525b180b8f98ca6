package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresStore keeps every record in a single kv_store table with the
// key as primary key, so one Set is one atomic upsert.
type PostgresStore struct {
	db *sqlx.DB
}

// ConnectPostgres opens the database and runs migrations.
func ConnectPostgres(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS kv_store (
            k TEXT PRIMARY KEY,
            v JSONB NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS kv_store_prefix_idx ON kv_store (k text_pattern_ops);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}

// Get fetches a value or (nil, nil) when the key is absent.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value, `SELECT v FROM kv_store WHERE k=$1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return value, err
}

// Set upserts the value for the key.
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv_store (k, v, updated_at) VALUES ($1, $2, NOW())
        ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v, updated_at = NOW()`, key, value)
	return err
}

// Del removes the key; deleting a missing key is not an error.
func (s *PostgresStore) Del(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE k=$1`, key)
	return err
}

// GetByPrefix returns every value whose key starts with prefix, in key order.
func (s *PostgresStore) GetByPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	rows, err := s.db.QueryxContext(ctx, `SELECT v FROM kv_store WHERE k LIKE $1 || '%' ORDER BY k`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values [][]byte
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ Store = (*PostgresStore)(nil)
