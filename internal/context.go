package internal

import "context"

type userIDKey struct{}

// UserIDFromContext returns the authenticated user id, or 0 for anonymous
// requests and background jobs.
func UserIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	id, _ := ctx.Value(userIDKey{}).(int64)
	return id
}

func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}
