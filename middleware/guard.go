// Package middleware exposes an HTTP adapter for sessionkit: a guard that
// validates and refreshes the session on every request and injects the live
// record into the request context.
//
// This package translates HTTP semantics into Manager calls. It does not make
// session decisions itself, and every rejection renders the same opaque
// sign-in prompt so responses never reveal whether a token existed.
package middleware

import (
	"context"
	"net/http"
	"strings"

	sessionkit "github.com/convopanel/sessionkit"
)

// SubjectHeader carries the authenticated subject identifier, set by the
// upstream authentication layer.
const SubjectHeader = "X-Subject-ID"

type sessionContextKey struct{}

// SessionFromContext returns the validated session record injected by
// [Guard].
func SessionFromContext(ctx context.Context) (*sessionkit.SessionInfo, bool) {
	rec, ok := ctx.Value(sessionContextKey{}).(*sessionkit.SessionInfo)
	return rec, ok
}

// Guard validates the request's session and, on success, refreshes its
// activity window before invoking the next handler. The session token is read
// from the Authorization bearer header; the subject from [SubjectHeader].
func Guard(manager *sessionkit.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				reject(w)
				return
			}

			subjectID := r.Header.Get(SubjectHeader)
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if subjectID == "" || !ok {
				reject(w)
				return
			}

			ctx := sessionkit.WithClientIP(r.Context(), remoteIP(r))
			ctx = sessionkit.WithUserAgent(ctx, r.UserAgent())

			res, err := manager.RefreshSession(ctx, subjectID, token)
			if err != nil || !res.Valid {
				reject(w)
				return
			}

			ctx = context.WithValue(ctx, sessionContextKey{}, res.Record)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(w http.ResponseWriter) {
	http.Error(w, sessionkit.ReasonNotFound.UserMessage(), http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func remoteIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx > 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}

	host := r.RemoteAddr
	if idx := strings.LastIndexByte(host, ':'); idx > 0 {
		host = host[:idx]
	}
	return host
}
