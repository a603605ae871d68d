package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Store is the persistence surface the resolver needs.
type Store interface {
	// GetClub returns the club with the given ID or ErrClubNotFound.
	GetClub(ctx context.Context, id uuid.UUID) (*Club, error)
	// GetMembershipClub returns the club a user belongs to through an
	// explicit membership, or ErrClubNotFound when the user has none.
	GetMembershipClub(ctx context.Context, userID uuid.UUID) (*Club, error)
	// CreateClub inserts a new club. Inserting an ID that already exists
	// must not fail, so concurrent first requests converge on one row.
	CreateClub(ctx context.Context, club *Club) error
}

// Resolver maps an authenticated user to their club, creating the personal
// club on first contact.
type Resolver struct {
	store Store
	log   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

func WithResolverLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResolver creates a Resolver. Panics on a nil store.
func NewResolver(store Store, opts ...ResolverOption) *Resolver {
	if store == nil {
		panic("tenant: Store is required")
	}
	r := &Resolver{store: store, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the club for a user. Explicit memberships win; users
// without one fall back to their personal club, which is created on the
// spot when missing. The personal club reuses the user's ID, so the lookup
// never needs a join and repeat calls are a single primary key read.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, displayName string) (*Club, error) {
	club, err := r.store.GetMembershipClub(ctx, userID)
	switch {
	case err == nil:
		return club, nil
	case !errors.Is(err, ErrClubNotFound):
		return nil, err
	}

	club, err = r.store.GetClub(ctx, userID)
	switch {
	case err == nil:
		return club, nil
	case !errors.Is(err, ErrClubNotFound):
		return nil, err
	}

	club = &Club{
		ID:       userID,
		OwnerID:  userID,
		Name:     personalClubName(displayName),
		Personal: true,
	}
	if err := r.store.CreateClub(ctx, club); err != nil {
		return nil, errors.Join(ErrProvisionFailed, err)
	}

	r.log.InfoContext(ctx, "provisioned personal club",
		slog.String("club_id", club.ID.String()),
		slog.String("name", club.Name))

	return club, nil
}

func personalClubName(displayName string) string {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return "Personal club"
	}
	return fmt.Sprintf("Coach %s", displayName)
}
