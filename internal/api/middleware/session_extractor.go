package middleware

import (
	"context"
	"net/http"
	"strings"

	pkgmw "github.com/ck3fence/ck3fence/pkg/middleware"
)

type contextKey string

const (
	// SessionIDKey is the context key for the request-scoped session ID.
	SessionIDKey contextKey = "session_id"
)

// SessionExtractor extracts the ck3fence session ID from the request.
// It checks the X-Session header, then the session query parameter.
// An unset session is left empty — handlers that require a session
// (resolve, enforce, tool calls) reject the request themselves rather
// than silently defaulting to a shared session.
func SessionExtractor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := ""

		if h := r.Header.Get("X-Session"); h != "" {
			session = strings.TrimSpace(h)
		}
		if session == "" {
			if q := r.URL.Query().Get("session"); q != "" {
				session = strings.TrimSpace(q)
			}
		}

		ctx := pkgmw.SetSession(r.Context(), session)
		ctx = context.WithValue(ctx, SessionIDKey, session)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSession retrieves the session ID from the request context.
func GetSession(ctx context.Context) string {
	return pkgmw.GetSession(ctx)
}
