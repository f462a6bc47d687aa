// Package store persists accounts and their API keys in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound       = errors.New("store: not found")
	ErrDuplicateName  = errors.New("store: API key name already exists for this account")
	ErrDuplicateEmail = errors.New("store: account with this email already exists")
	ErrInvalid        = errors.New("store: invalid input")
)

type Options struct {
	// Passphrase enables sealing of secrets at rest. Empty stores plaintext.
	Passphrase string
	Logger     *slog.Logger
	Now        func() time.Time
}

type Store struct {
	db     *sql.DB
	sealer *Sealer
	logger *slog.Logger
	now    func() time.Time
}

// Open creates the database file and its directory if needed.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("store: creating DB dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("store: opening DB: %w", err)
	}
	s, err := New(ctx, db, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// dsn enables foreign keys on every pooled connection; a PRAGMA would only
// reach one of them.
func dsn(path string) string {
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
}

func New(ctx context.Context, db *sql.DB, opts Options) (*Store, error) {
	s := &Store{db: db, logger: opts.Logger, now: opts.Now}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	if opts.Passphrase != "" {
		if err := s.enableSealing(ctx, opts.Passphrase); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Sealed() bool { return s.sealer != nil }

func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			organization_name TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			secret TEXT NOT NULL,
			masked_key TEXT NOT NULL,
			provider TEXT NOT NULL,
			key_type TEXT NOT NULL,
			account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			admin_key_id INTEGER REFERENCES api_keys(id) ON DELETE SET NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE (account_id, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_api_keys_admin ON api_keys(admin_key_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: init schema: %w", err)
		}
	}
	return nil
}

const (
	metaSalt  = "seal_salt"
	metaCheck = "seal_check"
	checkText = "keydash"
)

// enableSealing derives the sealing key from the persisted salt, verifies the
// passphrase against the stored check value, and seals any plaintext secrets
// left from before sealing was turned on.
func (s *Store) enableSealing(ctx context.Context, passphrase string) error {
	salt, err := s.loadOrCreateSalt(ctx)
	if err != nil {
		return err
	}
	sealer, err := NewSealer(passphrase, salt)
	if err != nil {
		return err
	}

	check, err := s.metaValue(ctx, metaCheck)
	switch {
	case errors.Is(err, ErrNotFound):
		sealed, err := sealer.Seal(checkText)
		if err != nil {
			return err
		}
		if err := s.setMeta(ctx, metaCheck, sealed); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if got, err := sealer.Open(check); err != nil || got != checkText {
			return ErrSealed
		}
	}

	s.sealer = sealer
	n, err := s.sealPlaintext(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("sealed plaintext secrets", "event", "store_sealed", "count", n)
	}
	return nil
}

func (s *Store) loadOrCreateSalt(ctx context.Context) ([]byte, error) {
	encoded, err := s.metaValue(ctx, metaSalt)
	if err == nil {
		salt, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("store: decoding salt: %w", err)
		}
		return salt, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	salt, err := newSalt()
	if err != nil {
		return nil, err
	}
	if err := s.setMeta(ctx, metaSalt, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, err
	}
	return salt, nil
}

func (s *Store) metaValue(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: reading meta %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) setMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("store: writing meta %s: %w", key, err)
	}
	return nil
}

func (s *Store) sealPlaintext(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id, secret FROM api_keys`)
	if err != nil {
		return 0, fmt.Errorf("store: listing secrets: %w", err)
	}
	pending := map[int64]string{}
	for rows.Next() {
		var id int64
		var secret string
		if err := rows.Scan(&id, &secret); err != nil {
			rows.Close()
			return 0, fmt.Errorf("store: scanning secret: %w", err)
		}
		if !isSealed(secret) {
			pending[id] = secret
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("store: listing secrets: %w", err)
	}

	for id, secret := range pending {
		sealed, err := s.sealer.Seal(secret)
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE api_keys SET secret = ? WHERE id = ?`, sealed, id); err != nil {
			return 0, fmt.Errorf("store: sealing key %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return len(pending), nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueViolation(err error) bool {
	return isConstraint(err, sqlite3.ErrConstraintUnique)
}

func isForeignKeyViolation(err error) bool {
	return isConstraint(err, sqlite3.ErrConstraintForeignKey)
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == code
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func clean(s string) string { return strings.TrimSpace(s) }
