package api

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
)

// GetRequestID returns the chi request ID, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	return middleware.GetReqID(ctx)
}

// requestLogger returns the default logger annotated with the request ID.
func requestLogger(ctx context.Context) *slog.Logger {
	if id := GetRequestID(ctx); id != "" {
		return slog.Default().With("request_id", id)
	}
	return slog.Default()
}
