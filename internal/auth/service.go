package auth

import (
	"context"
	"errors"
	"time"

	"github.com/congo-pay/bankcore/internal/identity"
	"github.com/congo-pay/bankcore/internal/metrics"
	"github.com/congo-pay/bankcore/internal/password"
)

// ErrInvalidCredentials is returned for every failed login regardless of
// which credential was wrong.
var ErrInvalidCredentials = identity.ErrInvalidCredentials

// CredentialChecker verifies an email/password pair.
type CredentialChecker interface {
	Authenticate(ctx context.Context, creds identity.Credentials) (identity.Identity, error)
}

// Session is the result of a successful login.
type Session struct {
	Identity  identity.Identity
	Token     string
	ExpiresAt time.Time
}

// Service implements the login path and the request authentication check.
type Service struct {
	ids    CredentialChecker
	tokens *TokenManager
	gate   *Gate
	floor  password.Floor
}

// NewService wires credential checks, token issuance and the minimum login
// duration.
func NewService(ids CredentialChecker, tokens *TokenManager, floor password.Floor) *Service {
	return &Service{ids: ids, tokens: tokens, gate: NewGate(tokens), floor: floor}
}

// Gate exposes the gate used by IsAuthenticated for route middleware.
func (s *Service) Gate() *Gate {
	return s.gate
}

// Login verifies credentials and issues a session token. Every outcome,
// including storage failures, returns no earlier than the configured floor.
func (s *Service) Login(ctx context.Context, email, plaintext string) (Session, error) {
	start := time.Now()
	session, outcome, err := s.login(ctx, email, plaintext)
	s.floor.Wait(ctx, start)
	metrics.RecordLogin(outcome, time.Since(start))
	return session, err
}

func (s *Service) login(ctx context.Context, email, plaintext string) (Session, string, error) {
	id, err := s.ids.Authenticate(ctx, identity.Credentials{Email: email, Password: plaintext})
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return Session{}, metrics.OutcomeInvalid, ErrInvalidCredentials
		}
		return Session{}, metrics.OutcomeError, err
	}

	token, exp, err := s.tokens.Issue(id.Email)
	if err != nil {
		return Session{}, metrics.OutcomeError, err
	}
	id.PasswordHash = ""
	return Session{Identity: id, Token: token, ExpiresAt: exp}, metrics.OutcomeSuccess, nil
}

// IsAuthenticated reports whether token is a valid session. On success the
// returned context carries the identity.
func (s *Service) IsAuthenticated(ctx context.Context, token string) (context.Context, string, bool) {
	authed, email, err := s.gate.Check(ctx, token)
	return authed, email, err == nil
}
