package auth

import "context"

type identityKey struct{}

// WithIdentity binds the authenticated email to ctx. The binding lives only
// as long as the request context it was derived from.
func WithIdentity(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, identityKey{}, email)
}

// IdentityFrom returns the email bound by WithIdentity.
func IdentityFrom(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(identityKey{}).(string)
	return email, ok && email != ""
}
