package refresh

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotRotatable covers every way a presented credential can fail
	// consumption: absent, expired, or revoked. External callers must not
	// learn which.
	ErrNotRotatable = errors.New("refresh credential not rotatable")

	// ErrConsumed is the internal refinement for a row that exists but was
	// already revoked — an explicit revocation or the losing side of a
	// rotation race. It unwraps to ErrNotRotatable so callers that do not
	// care about replay accounting can treat both identically.
	ErrConsumed = fmt.Errorf("refresh credential already consumed: %w", ErrNotRotatable)
)

// DBTX is the subset of database/sql used by the store. Both *sql.DB and
// *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Credential is one persisted refresh-credential row. TokenHash is the
// SHA-256 digest of the opaque value handed to the client; the value itself
// never reaches this package.
type Credential struct {
	TokenHash string
	SubjectID string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// IsValid reports whether the credential is usable at the given instant.
func (c *Credential) IsValid(now time.Time) bool {
	return !c.Revoked && now.Before(c.ExpiresAt)
}

// Store implements refresh-credential persistence over DBTX
// (PostgreSQL, pgx stdlib driver).
type Store struct {
	db DBTX
}

// NewStore constructs a store bound to the given DBTX.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS refresh_credentials (
	token_hash TEXT PRIMARY KEY,
	subject_id TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	revoked    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS refresh_credentials_subject_idx
	ON refresh_credentials (subject_id);
`

// EnsureSchema creates the credential table if it does not exist yet.
// Idempotent; intended for examples and tests, not as a migration system.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Create inserts a new credential row.
func (s *Store) Create(ctx context.Context, cred Credential) error {
	query := `
		INSERT INTO refresh_credentials (token_hash, subject_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.ExecContext(ctx, query,
		cred.TokenHash, cred.SubjectID, cred.ExpiresAt, cred.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ConsumeRotate atomically revokes the row for tokenHash if it is still live
// and returns the owning subject. The revoke-if-still-valid condition runs
// as one UPDATE, so of two concurrent callers exactly one gets the row.
func (s *Store) ConsumeRotate(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	query := `
		UPDATE refresh_credentials
		SET revoked = TRUE
		WHERE token_hash = $1 AND revoked = FALSE AND expires_at > $2
		RETURNING subject_id
	`
	var subjectID string
	err := s.db.QueryRowContext(ctx, query, tokenHash, now).Scan(&subjectID)
	if err == nil {
		return subjectID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("db error: %w", err)
	}

	// Zero rows: refine for replay accounting. A probe failure here is
	// deliberately folded into the generic outcome.
	probe := `SELECT revoked FROM refresh_credentials WHERE token_hash = $1`
	var revoked bool
	if perr := s.db.QueryRowContext(ctx, probe, tokenHash).Scan(&revoked); perr == nil && revoked {
		return "", ErrConsumed
	}
	return "", ErrNotRotatable
}

// Revoke marks the row for tokenHash as revoked. Revoking an absent or
// already-revoked credential is not an error.
func (s *Store) Revoke(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE refresh_credentials
		SET revoked = TRUE
		WHERE token_hash = $1
	`
	if _, err := s.db.ExecContext(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RevokeAll revokes every live credential of the subject in one statement
// and returns how many rows it touched. A credential inserted concurrently
// after the statement's snapshot is not covered.
func (s *Store) RevokeAll(ctx context.Context, subjectID string) (int64, error) {
	query := `
		UPDATE refresh_credentials
		SET revoked = TRUE
		WHERE subject_id = $1 AND revoked = FALSE
	`
	res, err := s.db.ExecContext(ctx, query, subjectID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// DeleteExpired removes rows whose expiry is in the past and returns the
// number deleted.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_credentials
		WHERE expires_at <= $1
	`
	res, err := s.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// CountActive returns the number of live credentials held by the subject.
func (s *Store) CountActive(ctx context.Context, subjectID string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM refresh_credentials
		WHERE subject_id = $1 AND revoked = FALSE AND expires_at > $2
	`
	var n int
	if err := s.db.QueryRowContext(ctx, query, subjectID, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// RevokeOldest revokes the longest-lived live credential of the subject.
// Used by the per-subject device cap before issuing past the limit.
func (s *Store) RevokeOldest(ctx context.Context, subjectID string, now time.Time) error {
	query := `
		UPDATE refresh_credentials
		SET revoked = TRUE
		WHERE token_hash = (
			SELECT token_hash
			FROM refresh_credentials
			WHERE subject_id = $1 AND revoked = FALSE AND expires_at > $2
			ORDER BY created_at ASC
			LIMIT 1
		)
	`
	if _, err := s.db.ExecContext(ctx, query, subjectID, now); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
