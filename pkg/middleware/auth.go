package middleware

import (
	"context"
)

type contextKeyType string

const userIDKey contextKeyType = "user_id"

// SetUserID returns a context carrying the authenticated user's ID. The
// authorization gate calls this after verifying the access token so the
// request logger and downstream handlers can attribute work to a user.
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the user ID from the request context. It returns
// the empty string for unauthenticated requests.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
