package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insightball/backend/pkg/pg"
	"github.com/insightball/backend/pkg/tenant"
)

// ClubsStore persists clubs and memberships for the tenant resolver.
type ClubsStore struct {
	pool *pgxpool.Pool
}

func NewClubsStore(pool *pgxpool.Pool) *ClubsStore {
	if pool == nil {
		panic("storage: pgx pool is required")
	}
	return &ClubsStore{pool: pool}
}

func (s *ClubsStore) GetClub(ctx context.Context, id uuid.UUID) (*tenant.Club, error) {
	var club tenant.Club
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, personal, created_at FROM clubs WHERE id = $1`, id).
		Scan(&club.ID, &club.OwnerID, &club.Name, &club.Personal, &club.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, tenant.ErrClubNotFound
		}
		return nil, err
	}
	return &club, nil
}

func (s *ClubsStore) GetMembershipClub(ctx context.Context, userID uuid.UUID) (*tenant.Club, error) {
	var club tenant.Club
	err := s.pool.QueryRow(ctx,
		`SELECT c.id, c.owner_id, c.name, c.personal, c.created_at
		 FROM clubs c
		 JOIN club_members cm ON cm.club_id = c.id
		 WHERE cm.user_id = $1`, userID).
		Scan(&club.ID, &club.OwnerID, &club.Name, &club.Personal, &club.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, tenant.ErrClubNotFound
		}
		return nil, err
	}
	return &club, nil
}

// CreateClub inserts a club. ON CONFLICT DO NOTHING makes concurrent
// personal-club provisioning converge on a single row.
func (s *ClubsStore) CreateClub(ctx context.Context, club *tenant.Club) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO clubs (id, owner_id, name, personal)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		club.ID, club.OwnerID, club.Name, club.Personal)
	return err
}

// AddMember attaches a user to a club. A user can belong to one club at a
// time; the unique index on user_id enforces it.
func (s *ClubsStore) AddMember(ctx context.Context, clubID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO club_members (club_id, user_id) VALUES ($1, $2)`, clubID, userID)
	return err
}

var _ tenant.Store = (*ClubsStore)(nil)
