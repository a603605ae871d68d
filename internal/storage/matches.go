package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insightball/backend/pkg/pg"
)

// MatchStatus tracks a match through its analysis pipeline.
type MatchStatus string

const (
	MatchUploaded   MatchStatus = "uploaded"
	MatchProcessing MatchStatus = "processing"
	MatchReady      MatchStatus = "ready"
	MatchFailed     MatchStatus = "failed"
)

// Match is an analyzed game belonging to a club.
type Match struct {
	ID          uuid.UUID
	ClubID      uuid.UUID
	CreatedBy   uuid.UUID
	Title       string
	Opponent    string
	Competition string
	Location    string
	IsHome      bool
	PlayedAt    *time.Time
	VideoURL    string
	Status      MatchStatus
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

var ErrMatchNotFound = errors.New("storage.errors.match_not_found")

// MatchesStore persists matches. Deletion is soft: the row keeps existing so
// usage counting stays stable, since removing a match does not give the
// quota slot back.
type MatchesStore struct {
	pool *pgxpool.Pool
}

func NewMatchesStore(pool *pgxpool.Pool) *MatchesStore {
	if pool == nil {
		panic("storage: pgx pool is required")
	}
	return &MatchesStore{pool: pool}
}

func (s *MatchesStore) Create(ctx context.Context, match *Match) error {
	if match.ID == uuid.Nil {
		match.ID = uuid.New()
	}
	if match.Status == "" {
		match.Status = MatchUploaded
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO matches (id, club_id, created_by, title, opponent, competition, location, is_home, played_at, video_url, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at`,
		match.ID, match.ClubID, match.CreatedBy, match.Title, match.Opponent,
		match.Competition, match.Location, match.IsHome,
		match.PlayedAt, match.VideoURL, string(match.Status)).
		Scan(&match.CreatedAt)
}

const matchColumns = `id, club_id, created_by, title, opponent, competition, location, is_home, played_at, video_url, status, created_at, deleted_at`

func scanMatch(row pgx.Row) (*Match, error) {
	var (
		m      Match
		status string
	)
	err := row.Scan(&m.ID, &m.ClubID, &m.CreatedBy, &m.Title, &m.Opponent,
		&m.Competition, &m.Location, &m.IsHome,
		&m.PlayedAt, &m.VideoURL, &status, &m.CreatedAt, &m.DeletedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	m.Status = MatchStatus(status)
	return &m, nil
}

// Get returns a live match scoped to a club.
func (s *MatchesStore) Get(ctx context.Context, clubID, id uuid.UUID) (*Match, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM matches
		 WHERE id = $1 AND club_id = $2 AND deleted_at IS NULL`, id, clubID)
	return scanMatch(row)
}

// List returns a club's live matches, newest first.
func (s *MatchesStore) List(ctx context.Context, clubID uuid.UUID) ([]*Match, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+matchColumns+` FROM matches
		 WHERE club_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC`, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Delete soft-deletes a match. Returns ErrMatchNotFound when no live match
// with that ID exists in the club.
func (s *MatchesStore) Delete(ctx context.Context, clubID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE matches SET deleted_at = now()
		 WHERE id = $1 AND club_id = $2 AND deleted_at IS NULL`, id, clubID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMatchNotFound
	}
	return nil
}

// UpdateStatus moves a match along its processing pipeline.
func (s *MatchesStore) UpdateStatus(ctx context.Context, id uuid.UUID, status MatchStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE matches SET status = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMatchNotFound
	}
	return nil
}

// CountMatches counts matches created in [from, to). Soft-deleted rows are
// included on purpose: a deleted match does not refund its quota slot.
func (s *MatchesStore) CountMatches(ctx context.Context, clubID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM matches
		 WHERE club_id = $1 AND created_at >= $2 AND created_at < $3`,
		clubID, from, to).Scan(&count)
	return count, err
}
