package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// DefaultTokenTTL is the lifetime of a session token.
const DefaultTokenTTL = 60 * time.Minute

var (
	// ErrUnauthenticated means no token was presented at all.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidToken is matched by every token validation failure.
	ErrInvalidToken = errors.New("invalid token")

	ErrMalformedToken = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrBadSignature   = fmt.Errorf("%w: bad signature", ErrInvalidToken)
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)
)

// TokenManager issues and validates HS256 session tokens. Tokens are not
// stored server-side: validity is a function of the signature and the
// expiry only, so a token cannot be revoked before it expires.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customises a TokenManager.
type TokenOption func(*TokenManager)

// WithTTL overrides DefaultTokenTTL.
func WithTTL(ttl time.Duration) TokenOption {
	return func(m *TokenManager) { m.ttl = ttl }
}

// WithClock overrides the wall clock used for iat, exp and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.now = now }
}

// NewTokenManager builds a TokenManager signing with secret. The secret is
// copied and never changes for the lifetime of the manager.
func NewTokenManager(secret []byte, opts ...TokenOption) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret is required")
	}
	m := &TokenManager{
		secret: append([]byte(nil), secret...),
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return m, nil
}

// Issue signs a token for subject valid from now until now+TTL.
func (m *TokenManager) Issue(subject string) (string, time.Time, error) {
	now := m.now().UTC().Truncate(time.Second)
	exp := now.Add(m.ttl)

	tok, err := jwt.NewBuilder().
		Subject(subject).
		IssuedAt(now).
		Expiration(exp).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, m.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return string(signed), exp, nil
}

// Validate returns the subject of a well-formed, correctly signed and
// unexpired token.
func (m *TokenManager) Validate(token string) (string, error) {
	if err := checkSegments(token); err != nil {
		return "", err
	}
	raw := []byte(token)

	msg, err := jws.Parse(raw)
	if err != nil {
		return "", ErrMalformedToken
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return "", ErrMalformedToken
	}
	if sigs[0].ProtectedHeaders().Algorithm() != jwa.HS256 {
		return "", ErrBadSignature
	}
	if _, err := jws.Verify(raw, jws.WithKey(jwa.HS256, m.secret)); err != nil {
		return "", ErrBadSignature
	}

	claims, err := jwt.ParseInsecure(raw)
	if err != nil {
		return "", ErrMalformedToken
	}
	subject := claims.Subject()
	exp := claims.Expiration()
	if subject == "" || exp.IsZero() {
		return "", ErrMalformedToken
	}
	if m.now().After(exp) {
		return "", ErrTokenExpired
	}
	return subject, nil
}

// checkSegments classifies a compact token before it is parsed. Once the
// header and payload decode, any damage to the signature segment is a bad
// signature, including characters outside the base64url alphabet and
// non-zero trailing bits.
func checkSegments(token string) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ErrMalformedToken
	}
	for _, part := range parts[:2] {
		if _, err := base64.RawURLEncoding.DecodeString(part); err != nil || part == "" {
			return ErrMalformedToken
		}
	}
	if _, err := base64.RawURLEncoding.Strict().DecodeString(parts[2]); err != nil || parts[2] == "" {
		return ErrBadSignature
	}
	return nil
}
