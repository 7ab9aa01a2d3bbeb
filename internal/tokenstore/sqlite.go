package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hanpama/gqlink/internal/logging"
	_ "modernc.org/sqlite"
)

const writeTimeout = 5 * time.Second

// SQLite persists the slot in a key/value table. The current value is kept
// in memory so reads never touch the database; writes go through
// immediately and failures are reported to the logger.
type SQLite struct {
	db  *sql.DB
	key string
	log logging.Logger
	mem Memory
}

// OpenSQLite opens (or creates) the database at path and loads the slot
// named key.
func OpenSQLite(ctx context.Context, path, key string, log logging.Logger) (*SQLite, error) {
	if key == "" {
		key = DefaultKey
	}
	if log == nil {
		log = logging.Nop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: open %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tokenstore: create table: %w", err)
	}
	s := &SQLite{db: db, key: key, log: log}

	var value []byte
	err = db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		_ = db.Close()
		return nil, fmt.Errorf("tokenstore: load %s: %w", key, err)
	default:
		s.mem.Write(string(value))
	}
	return s, nil
}

func (s *SQLite) Read() (string, bool) { return s.mem.Read() }

func (s *SQLite) Write(token string) {
	s.mem.Write(token)
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, s.key, []byte(token))
	if err != nil {
		s.log.Error(ctx, "persist token", "key", s.key, "error", err)
	}
}

func (s *SQLite) Clear() {
	s.mem.Clear()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, s.key); err != nil {
		s.log.Error(ctx, "clear token", "key", s.key, "error", err)
	}
}

func (s *SQLite) Close() error { return s.db.Close() }
