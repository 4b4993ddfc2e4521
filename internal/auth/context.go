package auth

import "context"

type contextKey struct{}

// AuthContext carries the authenticated viewer through a request: the
// identity-provider subject plus the lazily created local profile.
type AuthContext struct {
	UserID    string
	Email     string
	ProfileID string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// ProfileID returns the viewer's profile ID, or "" when unauthenticated.
func ProfileID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.ProfileID
}
