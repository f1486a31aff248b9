package quorum

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/canonica-labs/lakequery/internal/ports"
)

// SQLiteSnapshotStore is a ports.SnapshotStore backed by a local SQLite
// database, used for single-node deployments and tests where standing up
// S3 is unnecessary ceremony. Registered driver name and sql.Open call
// follow the pattern used by the pack's own sqlite-backed tests
// (tests/redflag/audit_persistence_test.go, tests/greenflag's
// implementations_test.go), both of which open "sqlite" via
// modernc.org/sqlite's pure-Go driver rather than cgo's mattn/go-sqlite3.
type SQLiteSnapshotStore struct {
	db *sql.DB
}

var _ ports.SnapshotStore = (*SQLiteSnapshotStore)(nil)

// NewSQLiteSnapshotStore opens (creating if necessary) a SQLite database
// at path and ensures its snapshot table exists. Use ":memory:" for tests.
func NewSQLiteSnapshotStore(ctx context.Context, path string) (*SQLiteSnapshotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	const schema = `
		CREATE TABLE IF NOT EXISTS quorum_snapshots (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteSnapshotStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteSnapshotStore) Close() error {
	return s.db.Close()
}

// Snapshot returns key's stored value, or (nil, nil) if absent or expired.
func (s *SQLiteSnapshotStore) Snapshot(ctx context.Context, key string) ([]byte, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM quorum_snapshots WHERE key = ?`, key)
	var value []byte
	var expiresAt int64
	if err := row.Scan(&value, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if expiresAt != 0 && time.Now().Unix() > expiresAt {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM quorum_snapshots WHERE key = ?`, key)
		return nil, nil
	}
	return value, nil
}

// Install upserts snapshot under key with an optional ttl (0 means no
// expiry).
func (s *SQLiteSnapshotStore) Install(ctx context.Context, key string, ttl time.Duration, snapshot []byte) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quorum_snapshots (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, snapshot, expiresAt)
	return err
}
