package middleware

import (
	"context"
)

// Context key type to avoid collisions
type contextKey string

const (
	// SessionIDKey is the context key for the session identifier
	SessionIDKey contextKey = "session_id"
)

// GetSessionIDFromContext retrieves the session ID from context
func GetSessionIDFromContext(ctx context.Context) string {
	if val := ctx.Value(SessionIDKey); val != nil {
		if sessionID, ok := val.(string); ok {
			return sessionID
		}
	}
	return ""
}

// WithSessionID adds a session ID to the context
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}
