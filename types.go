package credrot

import (
	"context"
	"time"

	"github.com/credrot/credrot/refresh"
)

// Subject is the identity a credential is issued for. ID must be the stable
// external identifier (a UUID or similar public handle), never an internal
// row key — it is embedded verbatim in access tokens.
type Subject struct {
	ID       string
	Disabled bool
}

// IdentityVerifier is the collaborator that owns primary-credential checks
// and subject lookup. The engine never sees passwords beyond passing them
// through.
type IdentityVerifier interface {
	// VerifyCredentials resolves primary credentials to a subject. It must
	// fail for unknown identifiers and for wrong passwords without letting
	// a caller distinguish the two.
	VerifyCredentials(ctx context.Context, identifier, password string) (Subject, error)

	// SubjectByID resolves a subject during rotation. An error means the
	// subject no longer exists.
	SubjectByID(ctx context.Context, subjectID string) (Subject, error)
}

// RefreshStore is the persistence contract for refresh credentials,
// implemented by [refresh.Store]. All methods operate on token hashes; the
// engine is the only component that ever holds a raw value.
type RefreshStore interface {
	Create(ctx context.Context, cred refresh.Credential) error
	ConsumeRotate(ctx context.Context, tokenHash string, now time.Time) (subjectID string, err error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAll(ctx context.Context, subjectID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	CountActive(ctx context.Context, subjectID string, now time.Time) (int, error)
	RevokeOldest(ctx context.Context, subjectID string, now time.Time) error
}

var _ RefreshStore = (*refresh.Store)(nil)

// TokenPair is the success payload of issuance and rotation.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
