package api

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// contextKey is a private type to prevent context key collisions across packages.
type contextKey string

// ContextKeyRequestID stores the request correlation identifier (string)
const ContextKeyRequestID contextKey = "request_id"

// RequestIDHeader carries the correlation identifier in both directions
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds client-supplied identifiers
const maxRequestIDLength = 64

// GetRequestID extracts the request ID from the context.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	return requestID, ok
}

// GetRequestIDOrDefault returns the request ID or "unknown" for logging.
func GetRequestIDOrDefault(ctx context.Context) string {
	if requestID, ok := GetRequestID(ctx); ok && requestID != "" {
		return requestID
	}
	return "unknown"
}

// WithRequestID creates a new context with the request ID value.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// LogWithRequestID attaches the request ID of ctx to logger
func LogWithRequestID(ctx context.Context, logger *zap.SugaredLogger) *zap.SugaredLogger {
	return logger.With("request_id", GetRequestIDOrDefault(ctx))
}

// resolveRequestID keeps a usable client-supplied ID or generates a UUID v4
func resolveRequestID(header string) string {
	if id := sanitizeRequestID(header); id != "" {
		return id
	}
	return uuid.NewString()
}

// sanitizeRequestID keeps alphanumerics, dashes and underscores and
// truncates to maxRequestIDLength.
func sanitizeRequestID(id string) string {
	if len(id) > maxRequestIDLength {
		id = id[:maxRequestIDLength]
	}

	result := make([]byte, 0, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '-' || c == '_' {
			result = append(result, c)
		}
	}
	return string(result)
}
