package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// contextKey prevents collisions with other packages using context values
type contextKey struct{}

func WithClub(ctx context.Context, club *Club) context.Context {
	return context.WithValue(ctx, contextKey{}, club)
}

func FromContext(ctx context.Context) (*Club, bool) {
	club, ok := ctx.Value(contextKey{}).(*Club)
	return club, ok
}

// IDFromContext provides fast access to the club ID without exposing the
// full club record.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	club, ok := FromContext(ctx)
	if !ok || club == nil {
		return uuid.UUID{}, false
	}
	return club.ID, true
}

// MustFromContext panics if no club is found. Use only in handlers behind
// the Middleware, where a club is guaranteed.
func MustFromContext(ctx context.Context) *Club {
	club, ok := FromContext(ctx)
	if !ok || club == nil {
		panic("tenant: no club in context")
	}
	return club
}

// LoggerExtractor returns a function that enriches log records with the club ID.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := IDFromContext(ctx); ok {
			return slog.String("club_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
