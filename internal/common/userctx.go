package common

import (
	"context"
	"time"
)

// UserContext holds the identity resolved from a bearer token for the
// duration of a request. Absent (nil) means the request is anonymous.
type UserContext struct {
	UserID string
	Email  string
	Role   string
	// IssuedAt is the token's iat claim, used for the recent-login gate
	// on credential changes.
	IssuedAt time.Time
}

type contextKey int

const userContextKey contextKey = iota

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// ResolveUserID returns the authenticated user ID from context, or "".
func ResolveUserID(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil {
		return uc.UserID
	}
	return ""
}
