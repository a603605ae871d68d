package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insightball/backend/pkg/entitlement"
	"github.com/insightball/backend/pkg/pg"
)

// SubjectsStore reads and writes the billing projection on the users table.
// It backs both the entitlement gate (Get, ConsumeTrialMatch) and the
// billing ingestor (GetByID, GetByCustomerID, SaveBilling).
type SubjectsStore struct {
	pool *pgxpool.Pool
}

func NewSubjectsStore(pool *pgxpool.Pool) *SubjectsStore {
	if pool == nil {
		panic("storage: pgx pool is required")
	}
	return &SubjectsStore{pool: pool}
}

const subjectColumns = `
	u.id,
	COALESCE(cm.club_id, u.id),
	u.email,
	u.name,
	u.plan,
	u.is_superadmin,
	u.active,
	u.customer_id,
	u.subscription_id,
	u.trial_ends_at,
	u.trial_match_used,
	u.current_period_start,
	u.current_period_end`

const subjectFrom = `
	FROM users u
	LEFT JOIN club_members cm ON cm.user_id = u.id`

func (s *SubjectsStore) scanSubject(row interface{ Scan(dest ...any) error }) (*entitlement.Subject, error) {
	var (
		subject entitlement.Subject
		plan    string
	)
	err := row.Scan(
		&subject.ID,
		&subject.TenantID,
		&subject.Email,
		&subject.Name,
		&plan,
		&subject.IsSuperadmin,
		&subject.Active,
		&subject.CustomerID,
		&subject.SubscriptionID,
		&subject.TrialEndsAt,
		&subject.TrialMatchUsed,
		&subject.CurrentPeriodStart,
		&subject.CurrentPeriodEnd,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, entitlement.ErrSubjectNotFound
		}
		return nil, err
	}
	subject.Plan = entitlement.Plan(plan)
	return &subject, nil
}

// Get retrieves a subject snapshot by user ID. The tenant resolves to the
// user's membership club, or to their own ID for solo coaches.
func (s *SubjectsStore) Get(ctx context.Context, id uuid.UUID) (*entitlement.Subject, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+subjectColumns+subjectFrom+` WHERE u.id = $1`, id)
	return s.scanSubject(row)
}

// GetByID is an alias for Get matching the billing ingestor's interface.
func (s *SubjectsStore) GetByID(ctx context.Context, id uuid.UUID) (*entitlement.Subject, error) {
	return s.Get(ctx, id)
}

// GetByCustomerID looks a subject up by the billing provider's customer ID.
func (s *SubjectsStore) GetByCustomerID(ctx context.Context, customerID string) (*entitlement.Subject, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+subjectColumns+subjectFrom+` WHERE u.customer_id = $1 AND u.customer_id <> ''`,
		customerID)
	return s.scanSubject(row)
}

// ConsumeTrialMatch flips trial_match_used from false to true as a single
// conditional update. The rows-affected count decides the winner under
// concurrency; losers get false without error.
func (s *SubjectsStore) ConsumeTrialMatch(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET trial_match_used = TRUE, updated_at = now()
		 WHERE id = $1 AND trial_match_used = FALSE`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SaveBilling persists the billing-owned fields. It deliberately leaves
// trial_match_used alone: that column belongs to ConsumeTrialMatch, and a
// webhook replay must never reopen a consumed trial slot.
func (s *SubjectsStore) SaveBilling(ctx context.Context, subject *entitlement.Subject) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET
			plan = $2,
			active = $3,
			customer_id = $4,
			subscription_id = $5,
			trial_ends_at = $6,
			current_period_start = $7,
			current_period_end = $8,
			updated_at = now()
		 WHERE id = $1`,
		subject.ID,
		string(subject.Plan),
		subject.Active,
		subject.CustomerID,
		subject.SubscriptionID,
		subject.TrialEndsAt,
		subject.CurrentPeriodStart,
		subject.CurrentPeriodEnd,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entitlement.ErrSubjectNotFound
	}
	return nil
}

// CreateUser inserts a new user row. Used by tests and account provisioning.
func (s *SubjectsStore) CreateUser(ctx context.Context, id uuid.UUID, email, name string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, name) VALUES ($1, $2, $3)`, id, email, name)
	return err
}

var _ entitlement.SubjectStore = (*SubjectsStore)(nil)
