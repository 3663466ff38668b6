package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLen is the minimum accepted signing-secret length in bytes.
// Anything shorter is rejected at construction, before a single token can
// be signed.
const MinSecretLen = 32

var (
	// ErrSecretTooShort is returned by NewCodec for secrets under MinSecretLen.
	ErrSecretTooShort = errors.New("signing secret shorter than 32 bytes")
	// ErrMalformed is returned when a token cannot be parsed at all.
	ErrMalformed = errors.New("malformed access token")
	// ErrSignature is returned when the signature does not verify.
	ErrSignature = errors.New("access token signature invalid")
	// ErrExpired is returned for a well-signed token past its expiry.
	ErrExpired = errors.New("access token expired")
)

// Claims is the signed payload of an access token. RenewedAt moves on every
// re-sign; ID (jti) and IssuedAt are fixed at first issuance and survive
// renewal, so one token keeps one audit identity across its renewal chain.
type Claims struct {
	RenewedAt *jwt.NumericDate `json:"rnw"`
	jwt.RegisteredClaims
}

// SubjectID returns the stable external identifier the token was issued for.
func (c *Claims) SubjectID() string {
	return c.Subject
}

// Config carries the codec's signing parameters. Now may be nil, in which
// case time.Now is used.
type Config struct {
	Issuer         string
	Secret         []byte
	AccessTTL      time.Duration
	RenewThreshold time.Duration
	Now            func() time.Time
}

// Codec signs and verifies access tokens with HMAC-SHA-256. It is immutable
// after construction and safe for concurrent use.
type Codec struct {
	config Config
}

// NewCodec validates cfg and returns a ready codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < MinSecretLen {
		return nil, ErrSecretTooShort
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid access TTL configuration")
	}
	if cfg.RenewThreshold < 0 || cfg.RenewThreshold >= cfg.AccessTTL {
		return nil, errors.New("renew threshold must be shorter than the access TTL")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{config: cfg}, nil
}

// Issue signs a fresh token for subjectID with a new jti.
func (c *Codec) Issue(subjectID string) (string, error) {
	now := c.config.Now()
	claims := Claims{
		RenewedAt: jwt.NewNumericDate(now),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.config.Issuer,
			Subject:   subjectID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.config.AccessTTL)),
		},
	}
	return c.sign(claims)
}

// Decode verifies the signature, then the expiry, and only then returns the
// claims. No field of an unverified token is ever inspected.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.config.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.config.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignature
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.RenewedAt == nil || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}
	return claims, nil
}

// Renew decodes tokenStr and, when RenewedAt is older than the configured
// threshold, re-signs it with updated RenewedAt and ExpiresAt. Within the
// threshold the input string is returned unchanged and reissued is false;
// two Renew calls inside one threshold window are therefore byte-identical.
func (c *Codec) Renew(tokenStr string) (next string, reissued bool, err error) {
	claims, err := c.Decode(tokenStr)
	if err != nil {
		return "", false, err
	}

	now := c.config.Now()
	if now.Sub(claims.RenewedAt.Time) < c.config.RenewThreshold {
		return tokenStr, false, nil
	}

	renewed := Claims{
		RenewedAt: jwt.NewNumericDate(now),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    claims.Issuer,
			Subject:   claims.Subject,
			ID:        claims.ID,
			IssuedAt:  claims.IssuedAt,
			ExpiresAt: jwt.NewNumericDate(now.Add(c.config.AccessTTL)),
		},
	}
	next, err = c.sign(renewed)
	if err != nil {
		return "", false, err
	}
	return next, true, nil
}

func (c *Codec) sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.Secret)
}
