package services

import "context"

type contextKey string

const (
	senderKey    contextKey = "sender"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithSender annotates context with the conversation sender identity.
func WithSender(ctx context.Context, sender string) context.Context {
	if sender == "" {
		return ctx
	}
	return context.WithValue(ctx, senderKey, sender)
}

// SenderFromContext extracts the sender identity if present.
func SenderFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(senderKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
