package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sessionCookieName identifies the caller across requests; the history log is
// keyed by it
const sessionCookieName = "session_id"

// SessionMiddleware assigns an opaque session identifier to every request
type SessionMiddleware struct {
	logger *zap.Logger
}

// NewSessionMiddleware creates a new SessionMiddleware
func NewSessionMiddleware(logger *zap.Logger) *SessionMiddleware {
	return &SessionMiddleware{logger: logger}
}

// EnsureSession reads the session cookie, minting a new one when it is absent
// or not a valid UUID, and puts the session ID on the request context.
func (m *SessionMiddleware) EnsureSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := ""

		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				sessionID = cookie.Value
			}
		}

		if sessionID == "" {
			sessionID = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			m.logger.Debug("session created", zap.String("session_id", sessionID))
		}

		ctx := WithSessionID(r.Context(), sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
