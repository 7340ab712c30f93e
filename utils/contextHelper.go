package utils

import "context"

// Unexported key type so nothing outside this package can collide with
// the values the middleware and job runner stash on the context.
type contextKey string

const (
	contextKeyCorrelationId contextKey = "CorrelationId"
	contextKeyRunId         contextKey = "RunId"
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(contextKeyCorrelationId).(string)
	return v, ok
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, contextKeyCorrelationId, correlationId)
}

func GetRunIdFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(contextKeyRunId).(string)
	return v, ok
}

func SetRunIdInContext(ctx context.Context, runId string) context.Context {
	return context.WithValue(ctx, contextKeyRunId, runId)
}
