package handlers

import (
	"context"

	"go.uber.org/zap"
)

type requestMetaKey struct{}

// RequestMeta holds HTTP request metadata used for logging.
type RequestMeta struct {
	RequestID string
	ClientIP  string
	UserAgent string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

// Fields returns the metadata as log fields, skipping empty values.
func (m RequestMeta) Fields() []zap.Field {
	fields := make([]zap.Field, 0, 3)

	if m.RequestID != "" {
		fields = append(fields, zap.String("requestId", m.RequestID))
	}

	if m.ClientIP != "" {
		fields = append(fields, zap.String("clientIp", m.ClientIP))
	}

	if m.UserAgent != "" {
		fields = append(fields, zap.String("userAgent", m.UserAgent))
	}

	return fields
}
