package internal

import (
	"context"
)

type ctxKey string

const ContextSubjectKey ctxKey = "subject"

// SubjectFromContext returns the authenticated subject (admin user id) set by
// the auth middleware, or empty when the request is unauthenticated.
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if sub, ok := ctx.Value(ContextSubjectKey).(string); ok {
		return sub
	}
	return ""
}

func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ContextSubjectKey, subject)
}
