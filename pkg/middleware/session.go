// Package middleware provides shared context helpers used by both the
// HTTP middleware layer (internal/api/middleware) and handlers.
package middleware

import "context"

type contextKey string

const sessionKey contextKey = "session"

// GetSession extracts the ck3fence session ID from the context.
// Returns "" if no session is set.
func GetSession(ctx context.Context) string {
	if v, ok := ctx.Value(sessionKey).(string); ok {
		return v
	}
	return ""
}

// SetSession stores the session ID in the context.
func SetSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}
