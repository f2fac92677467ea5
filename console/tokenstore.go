package console

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// TokenKey is the single well-known key the bearer token is stored under.
const TokenKey = "token"

// TokenStorage is the durable home of the bearer token. LoadToken returns ""
// with a nil error when nothing is stored.
type TokenStorage interface {
	LoadToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
	Close() error
}

// OpenTokenStorage builds the backend selected in cfg.
func OpenTokenStorage(ctx context.Context, cfg Config) (TokenStorage, error) {
	sealer, err := NewSealer(cfg.KeyPath())
	if err != nil {
		return nil, err
	}
	switch cfg.SessionBackend {
	case BackendRedis:
		return NewRedisTokenStore(ctx, cfg.RedisURL, sealer)
	default:
		return NewSQLiteTokenStore(cfg.SessionDBPath(), sealer)
	}
}

// SQLiteTokenStore keeps client state in a small SQLite file.
type SQLiteTokenStore struct {
	db     *sql.DB
	sealer *Sealer
}

// NewSQLiteTokenStore opens (or creates) the database at dbPath and applies
// schema migrations. A nil sealer stores the token in clear.
func NewSQLiteTokenStore(dbPath string, sealer *Sealer) (*SQLiteTokenStore, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return newSQLTokenStore(db, sealer), nil
}

func newSQLTokenStore(db *sql.DB, sealer *Sealer) *SQLiteTokenStore {
	return &SQLiteTokenStore{db: db, sealer: sealer}
}

func (s *SQLiteTokenStore) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL lets a second console process read while another writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS client_state (
            key TEXT PRIMARY KEY,
            value BLOB NOT NULL,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Token access
// ---------------------------------------------------------------------------

func (s *SQLiteTokenStore) LoadToken(ctx context.Context) (string, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM client_state WHERE key=?`, TokenKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return unsealToken(s.sealer, raw)
}

func (s *SQLiteTokenStore) SaveToken(ctx context.Context, token string) error {
	raw, err := sealToken(s.sealer, token)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO client_state(key,value,updated_at) VALUES(?,?,CURRENT_TIMESTAMP)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`, TokenKey, raw)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *SQLiteTokenStore) ClearToken(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_state WHERE key=?`, TokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

func sealToken(sealer *Sealer, token string) ([]byte, error) {
	if sealer == nil {
		return []byte(token), nil
	}
	return sealer.Seal([]byte(token))
}

func unsealToken(sealer *Sealer, raw []byte) (string, error) {
	if sealer == nil {
		return string(raw), nil
	}
	plain, err := sealer.Open(raw)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
