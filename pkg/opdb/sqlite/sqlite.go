package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/opdb"
)

var _ opdb.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS opdb (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	value BLOB NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
	PRIMARY KEY (namespace, key)
);
CREATE INDEX IF NOT EXISTS idx_opdb_namespace ON opdb(namespace);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
}

type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open creates (if needed) and opens the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create opdb directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open opdb %s: %w", path, err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create opdb schema: %w", err)
	}

	s := &Store{db: db, path: path, logger: logger.Get(logger.OpDB)}
	s.logger.Info("Opened operational database", "path", path)
	return s, nil
}

func (s *Store) Put(ctx context.Context, namespace, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO opdb (namespace, key, value, updated_at)
		VALUES (?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, namespace, key, value)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM opdb WHERE namespace = ? AND key = ?`, namespace, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, namespace string, fn opdb.LoadFunc) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM opdb WHERE namespace = ? ORDER BY key`, namespace)
	if err != nil {
		return fmt.Errorf("load %s: %w", namespace, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan %s: %w", namespace, err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Count returns the number of records in namespace.
func (s *Store) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM opdb WHERE namespace = ?`, namespace).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", namespace, err)
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context, namespace string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM opdb WHERE namespace = ?`, namespace)
	if err != nil {
		return fmt.Errorf("clear %s: %w", namespace, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Info("Cleared namespace", "namespace", namespace, "records", n)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
