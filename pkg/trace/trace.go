package trace

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// HeaderName 是 HTTP 与 MQ header 中 trace ID 的键名
const HeaderName = "X-Trace-ID"

// FieldName 是日志与事件 payload 中的字段名
const FieldName = "trace_id"

// NewID 生成一个新的 trace ID
func NewID() string {
	return uuid.NewString()
}

// FromContext 从 context 中获取 trace ID，不存在时返回空串
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}

// WithContext 将 trace ID 写入 context
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// Ensure 返回带 trace ID 的 context；已有则沿用
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := NewID()
	return WithContext(ctx, id), id
}
