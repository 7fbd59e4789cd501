package identity

import (
	"context"
	"errors"

	"github.com/samber/oops"

	"github.com/congo-pay/bankcore/internal/password"
)

// ErrInvalidCredentials is the single outcome for an unknown email, a wrong
// password and an out-of-range password length.
var ErrInvalidCredentials = errors.New("invalid credentials")

// PasswordVerifier checks a plaintext against a stored hash.
type PasswordVerifier interface {
	Verify(plaintext, storedHash string) bool
}

// Service verifies credentials against the identity store.
type Service struct {
	repo     Repository
	verifier PasswordVerifier
}

// NewService creates a new identity service.
func NewService(repo Repository, verifier PasswordVerifier) *Service {
	if verifier == nil {
		verifier = password.NewVerifier()
	}
	return &Service{repo: repo, verifier: verifier}
}

// Authenticate verifies credentials. Unknown emails are verified against
// password.DummyHash so both failure paths perform the same hashing work.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (Identity, error) {
	if !password.LengthOK(creds.Password) {
		return Identity{}, ErrInvalidCredentials
	}

	id, err := s.repo.FindByEmail(ctx, creds.Email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return Identity{}, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "lookup identity").
				Wrap(err)
		}
		s.verifier.Verify(creds.Password, password.DummyHash)
		return Identity{}, ErrInvalidCredentials
	}

	if !s.verifier.Verify(creds.Password, id.PasswordHash) {
		return Identity{}, ErrInvalidCredentials
	}
	return id, nil
}
