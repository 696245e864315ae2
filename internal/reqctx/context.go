package reqctx

import "context"

type ctxKey string

const (
	keyRID       ctxKey = "rid"
	keyRequestID ctxKey = "repair_request_id"
)

// WithRID stores the HTTP correlation id used in log lines.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RID returns correlation id if present.
func RID(ctx context.Context) string {
	v, _ := ctx.Value(keyRID).(string)
	return v
}

// WithRequestID stores the repair request being worked on.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// RequestID returns repair request id if present.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}
