package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/coursepay/internal/client/migrations"
	"github.com/dmitrijs2005/coursepay/internal/dbx"
	"github.com/dmitrijs2005/coursepay/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// OpenDatabase opens (creating if needed) the SQLite file at dsn and
// migrates it.
func OpenDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	if err := filex.EnsureParentDir(dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// SQLiteStore keeps the credential in the kv_store table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Load(ctx context.Context) (*Credential, error) {
	return load(ctx, s.db)
}

func (s *SQLiteStore) Save(ctx context.Context, c *Credential) error {
	if c == nil {
		return s.Clear(ctx)
	}
	return save(ctx, s.db, c)
}

// UpdateTokens reads and rewrites the blob inside one transaction so that
// identity fields are never lost to a concurrent Save.
func (s *SQLiteStore) UpdateTokens(ctx context.Context, token, refreshToken string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		c, err := load(ctx, tx)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrNoSession
		}
		c.Token = token
		if refreshToken != "" {
			c.RefreshToken = refreshToken
		}
		return save(ctx, tx, c)
	})
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, StorageKey)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func load(ctx context.Context, q dbx.DBTX) (*Credential, error) {
	var blob []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, StorageKey).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var c Credential
	if err := json.Unmarshal(blob, &c); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &c, nil
}

func save(ctx context.Context, q dbx.DBTX, c *Credential) error {
	blob, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, StorageKey, blob)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
