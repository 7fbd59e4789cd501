package auth

import "context"

// TokenValidator validates a session token and returns its subject.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// Gate turns a raw session token into an authenticated request context.
type Gate struct {
	tokens TokenValidator
}

// NewGate builds a Gate over tokens.
func NewGate(tokens TokenValidator) *Gate {
	return &Gate{tokens: tokens}
}

// Check validates token and returns ctx with the identity bound to it.
// An empty token yields ErrUnauthenticated; anything else that fails yields
// the validator's error.
func (g *Gate) Check(ctx context.Context, token string) (context.Context, string, error) {
	if token == "" {
		return ctx, "", ErrUnauthenticated
	}
	email, err := g.tokens.Validate(token)
	if err != nil {
		return ctx, "", err
	}
	return WithIdentity(ctx, email), email, nil
}

// Operation is any unit of work that needs an authenticated identity.
type Operation[T any] func(ctx context.Context, email string) (T, error)

// Guard wraps op so it only runs after token passes the gate. On failure op
// is not invoked and the gate error is returned.
func Guard[T any](g *Gate, op Operation[T]) func(ctx context.Context, token string) (T, error) {
	return func(ctx context.Context, token string) (T, error) {
		authed, email, err := g.Check(ctx, token)
		if err != nil {
			var zero T
			return zero, err
		}
		return op(authed, email)
	}
}
