package refresh

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewStore(db), mock, db
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCredentialIsValid(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name string
		cred Credential
		want bool
	}{
		{"live", Credential{ExpiresAt: now.Add(time.Hour)}, true},
		{"revoked", Credential{ExpiresAt: now.Add(time.Hour), Revoked: true}, false},
		{"expired", Credential{ExpiresAt: now.Add(-time.Second)}, false},
		{"expiring right now", Credential{ExpiresAt: now}, false},
	}
	for _, tc := range tests {
		if got := tc.cred.IsValid(now); got != tc.want {
			t.Errorf("%s: IsValid = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCreate(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT INTO refresh_credentials \(token_hash, subject_id, expires_at, created_at\)\s+VALUES \(\$1, \$2, \$3, \$4\)\s*$`

	now := time.Now()
	mock.ExpectExec(q).
		WithArgs("hash-1", "subj-1", now.Add(time.Hour), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Create(context.Background(), Credential{
		TokenHash: "hash-1",
		SubjectID: "subj-1",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectMet(t, mock)
}

func TestCreateDBError(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO refresh_credentials`).
		WillReturnError(errors.New("db down"))

	err := store.Create(context.Background(), Credential{TokenHash: "h"})
	if err == nil {
		t.Fatal("expected wrapped db error")
	}
}

const consumeQuery = `(?s)^\s*UPDATE refresh_credentials\s+SET revoked = TRUE\s+WHERE token_hash = \$1 AND revoked = FALSE AND expires_at > \$2\s+RETURNING subject_id\s*$`
const probeQuery = `^SELECT revoked FROM refresh_credentials WHERE token_hash = \$1$`

func TestConsumeRotateLiveRow(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(consumeQuery).
		WithArgs("hash-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"subject_id"}).AddRow("subj-1"))

	subjectID, err := store.ConsumeRotate(context.Background(), "hash-1", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subjectID != "subj-1" {
		t.Fatalf("unexpected subject: %q", subjectID)
	}
	expectMet(t, mock)
}

func TestConsumeRotateAlreadyRevoked(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(consumeQuery).
		WithArgs("hash-1", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(probeQuery).
		WithArgs("hash-1").
		WillReturnRows(sqlmock.NewRows([]string{"revoked"}).AddRow(true))

	_, err := store.ConsumeRotate(context.Background(), "hash-1", time.Now())
	if !errors.Is(err, ErrConsumed) {
		t.Fatalf("expected ErrConsumed, got %v", err)
	}
	if !errors.Is(err, ErrNotRotatable) {
		t.Fatal("ErrConsumed must unwrap to ErrNotRotatable")
	}
	expectMet(t, mock)
}

func TestConsumeRotateMissingRow(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	mock.ExpectQuery(consumeQuery).
		WithArgs("hash-9", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(probeQuery).
		WithArgs("hash-9").
		WillReturnError(sql.ErrNoRows)

	_, err := store.ConsumeRotate(context.Background(), "hash-9", time.Now())
	if !errors.Is(err, ErrNotRotatable) {
		t.Fatalf("expected ErrNotRotatable, got %v", err)
	}
	if errors.Is(err, ErrConsumed) {
		t.Fatal("missing row must not report ErrConsumed")
	}
	expectMet(t, mock)
}

func TestRevokeIdempotent(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)^\s*UPDATE refresh_credentials\s+SET revoked = TRUE\s+WHERE token_hash = \$1\s*$`

	// Zero rows touched: absent or already revoked, still not an error.
	mock.ExpectExec(q).
		WithArgs("hash-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Revoke(context.Background(), "hash-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectMet(t, mock)
}

func TestRevokeAllReportsCount(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)^\s*UPDATE refresh_credentials\s+SET revoked = TRUE\s+WHERE subject_id = \$1 AND revoked = FALSE\s*$`

	mock.ExpectExec(q).
		WithArgs("subj-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.RevokeAll(context.Background(), "subj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 revoked rows, got %d", n)
	}
	expectMet(t, mock)
}

func TestDeleteExpired(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)^\s*DELETE FROM refresh_credentials\s+WHERE expires_at <= \$1\s*$`

	mock.ExpectExec(q).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := store.DeleteExpired(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 deleted rows, got %d", n)
	}
	expectMet(t, mock)
}

func TestCountActive(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)^\s*SELECT COUNT\(\*\)\s+FROM refresh_credentials\s+WHERE subject_id = \$1 AND revoked = FALSE AND expires_at > \$2\s*$`

	mock.ExpectQuery(q).
		WithArgs("subj-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := store.CountActive(context.Background(), "subj-1", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 active credentials, got %d", n)
	}
	expectMet(t, mock)
}

func TestRevokeOldest(t *testing.T) {
	store, mock, db := newStoreWithMock(t)
	defer db.Close()

	q := `(?s)^\s*UPDATE refresh_credentials\s+SET revoked = TRUE\s+WHERE token_hash = \(\s*SELECT token_hash.*ORDER BY created_at ASC\s+LIMIT 1\s*\)\s*$`

	mock.ExpectExec(q).
		WithArgs("subj-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.RevokeOldest(context.Background(), "subj-1", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectMet(t, mock)
}
