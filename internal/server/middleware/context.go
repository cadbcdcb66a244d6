package middleware

import "context"

type contextKey struct{ name string }

var (
	userIDKey    = contextKey{"user_id"}
	sessionIDKey = contextKey{"session_id"}
	projectIDKey = contextKey{"project_id"}
	clientIPKey  = contextKey{"client_ip"}
)

// WithIdentity returns a context with user_id and session_id set. Handlers
// and the auth service read these via GetUserID and GetSessionID.
func WithIdentity(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetSessionID returns the session_id from context and true if set; otherwise "", false.
func GetSessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok
}

// WithProjectID returns a context carrying the validated ProjectId header value.
func WithProjectID(ctx context.Context, projectID int64) context.Context {
	return context.WithValue(ctx, projectIDKey, projectID)
}

// GetProjectID returns the project id from context and true if set; otherwise 0, false.
func GetProjectID(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(projectIDKey).(int64)
	return v, ok
}

// WithClientIP returns a context carrying the client address for audit entries.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// GetClientIP returns the client address from context, or "" if unset.
func GetClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}
