package authn

import (
	"context"
	"strings"
)

type subjectContextKey struct{}

// ContextWithSubject attaches the authenticated identity id to the context.
func ContextWithSubject(ctx context.Context, identityID string) context.Context {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return ctx
	}
	return context.WithValue(ctx, subjectContextKey{}, identityID)
}

// SubjectFromContext extracts the authenticated identity id.
func SubjectFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(subjectContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
