package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store errors.
var (
	// ErrStoreClosed indicates the store was used after Close.
	ErrStoreClosed = errors.New("token store closed")

	// ErrTokenNotFound indicates the token hash is not in the store.
	ErrTokenNotFound = errors.New("token not found")
)

// TokenStore persists issued tokens to SQLite, keyed by token hash, so that
// individual tokens can be revoked before their expiry. It is suitable for
// single-process production use.
type TokenStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// StoredToken is one row in the store.
type StoredToken struct {
	Hash      string
	Subject   string
	Caps      CapabilitySet
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
	Reason    string
}

// Expired reports whether the token's expiry has passed.
func (t StoredToken) Expired() bool {
	return time.Now().After(t.ExpiresAt)
}

// Valid reports whether the token is neither revoked nor expired.
func (t StoredToken) Valid() bool {
	return !t.Revoked && !t.Expired()
}

// NewTokenStore opens a SQLite token store.
// The path should be a file path (e.g., "./tokens.db") or ":memory:" for testing.
func NewTokenStore(path string) (*TokenStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tokens (
			hash TEXT PRIMARY KEY,
			subject TEXT NOT NULL,
			caps INTEGER NOT NULL,
			issued_at TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			revoked INTEGER NOT NULL DEFAULT 0,
			reason TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tokens_subject
		ON tokens(subject)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &TokenStore{db: db}, nil
}

// Record stores an issued token.
func (s *TokenStore) Record(t *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO tokens (hash, subject, caps, issued_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, t.Hash(), t.Subject, uint32(t.Caps),
		t.IssuedAt.UTC().Format(time.RFC3339Nano),
		t.ExpiresAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record token: %w", err)
	}
	return nil
}

// Get returns the stored token for hash.
func (s *TokenStore) Get(hash string) (StoredToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return StoredToken{}, ErrStoreClosed
	}

	var (
		t        StoredToken
		caps     uint32
		issued   string
		expires  string
		revokedN int
	)
	err := s.db.QueryRow(`
		SELECT hash, subject, caps, issued_at, expires_at, revoked, reason
		FROM tokens WHERE hash = ?
	`, hash).Scan(&t.Hash, &t.Subject, &caps, &issued, &expires, &revokedN, &t.Reason)

	if err == sql.ErrNoRows {
		return StoredToken{}, ErrTokenNotFound
	}
	if err != nil {
		return StoredToken{}, fmt.Errorf("get token: %w", err)
	}

	t.Caps = CapabilitySet(caps)
	t.Revoked = revokedN != 0
	if t.IssuedAt, err = time.Parse(time.RFC3339Nano, issued); err != nil {
		return StoredToken{}, fmt.Errorf("parse issued_at: %w", err)
	}
	if t.ExpiresAt, err = time.Parse(time.RFC3339Nano, expires); err != nil {
		return StoredToken{}, fmt.Errorf("parse expires_at: %w", err)
	}
	return t, nil
}

// Revoke marks the token with the given hash as revoked.
func (s *TokenStore) Revoke(hash, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	res, err := s.db.Exec(`
		UPDATE tokens SET revoked = 1, reason = ? WHERE hash = ?
	`, reason, hash)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// RevokeBySubject revokes every token issued to subject.
// Returns the number of tokens revoked.
func (s *TokenStore) RevokeBySubject(subject, reason string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	res, err := s.db.Exec(`
		UPDATE tokens SET revoked = 1, reason = ? WHERE subject = ? AND revoked = 0
	`, reason, subject)
	if err != nil {
		return 0, fmt.Errorf("revoke by subject: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// IsRevoked reports whether the token with the given hash is revoked.
// An unknown hash is not revoked: the store only adds revocation on top of
// the stateless signature check.
func (s *TokenStore) IsRevoked(hash string) (bool, error) {
	t, err := s.Get(hash)
	if errors.Is(err, ErrTokenNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return t.Revoked, nil
}

// Cleanup deletes expired tokens. Returns the number of rows removed.
func (s *TokenStore) Cleanup() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	res, err := s.db.Exec(`
		DELETE FROM tokens WHERE expires_at < ?
	`, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("cleanup tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close closes the underlying database. Subsequent calls return nil.
func (s *TokenStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
