package logger

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// With stores a child logger carrying fields, typically request_id and
// user_id, so handlers further down log with them.
func With(ctx context.Context, fields ...any) context.Context {
	return context.WithValue(ctx, loggerKey{}, From(ctx).With(fields...))
}

func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return LoggerWrapper()
}
