package entitlement

import (
	"time"

	"github.com/google/uuid"
)

// Subject is the billing-relevant projection of a user. It is a snapshot:
// the Evaluator never mutates it, and the Gate only touches TrialMatchUsed
// through the store's compare-and-set.
type Subject struct {
	ID       uuid.UUID
	TenantID uuid.UUID // club ID, or the user's own ID for solo coaches

	Email string
	Name  string

	Plan         Plan // zero value means no plan assigned
	IsSuperadmin bool
	Active       bool

	// CustomerID and SubscriptionID are opaque identifiers from the billing
	// provider. A present SubscriptionID means a subscription record exists,
	// not necessarily an active one.
	CustomerID     string
	SubscriptionID string

	// TrialEndsAt bounds the one-match trial window. Set once, at the first
	// subscription; never re-granted on resubscription.
	TrialEndsAt    *time.Time
	TrialMatchUsed bool

	// CurrentPeriodStart/End delimit the active billing cycle, populated from
	// provider events. When absent the calendar month is used instead.
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
}

// InTrialWindow reports whether now falls strictly before the trial end.
// now == TrialEndsAt counts as expired.
func (s Subject) InTrialWindow(now time.Time) bool {
	return s.TrialEndsAt != nil && now.Before(*s.TrialEndsAt)
}

// HasSubscription reports whether a provider subscription record exists.
func (s Subject) HasSubscription() bool {
	return s.SubscriptionID != ""
}
