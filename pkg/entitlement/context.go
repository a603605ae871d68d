package entitlement

import (
	"context"

	"github.com/google/uuid"
)

type subjectIDCtxKey struct{}

// SetSubjectIDToContext stores the authenticated subject's ID in the context.
// The authentication layer is expected to call this once per request.
func SetSubjectIDToContext(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, subjectIDCtxKey{}, id)
}

// GetSubjectIDFromContext retrieves the subject ID set by the auth layer.
func GetSubjectIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(subjectIDCtxKey{}).(uuid.UUID)
	return id, ok
}

// SubjectIDFromContext is like GetSubjectIDFromContext but returns an error,
// for handlers that treat a missing identity as a failure.
func SubjectIDFromContext(ctx context.Context) (uuid.UUID, error) {
	id, ok := GetSubjectIDFromContext(ctx)
	if !ok {
		return uuid.Nil, ErrSubjectIDNotInContext
	}
	return id, nil
}
