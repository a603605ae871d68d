package billing

import (
	"context"
	"time"
)

// Provider is the minimal surface this backend needs from the payment
// provider. The adapter owns all provider-specific quirks, including webhook
// signature verification; everything past this interface deals only in
// normalized events and links.
type Provider interface {
	// ParseWebhook verifies the payload signature and normalizes the event.
	// Returns ErrWebhookVerification for bad signatures and ErrMalformedEvent
	// for payloads that verify but cannot be decoded.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)

	// CreateCheckoutLink creates a hosted checkout session.
	CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)

	// GetCustomerPortalLink returns a pre-authenticated customer portal link.
	GetCustomerPortalLink(ctx context.Context, customerID, subscriptionID string) (*PortalLink, error)

	// ActiveSubscription looks up the customer's current subscription.
	// Returns ErrNoSubscription when the customer has none that grants
	// access. Used as a read-only reconciliation fallback.
	ActiveSubscription(ctx context.Context, customerID string) (*RemoteSubscription, error)

	// ChangePlan moves an existing subscription to another price. When
	// endTrialNow is set the provider trial stops and billing starts
	// immediately (trial upgrades); otherwise the change is prorated.
	ChangePlan(ctx context.Context, subscriptionID, priceID string, endTrialNow bool) error

	// CancelAtPeriodEnd schedules cancellation for the end of the paid period.
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (cancelAt *time.Time, err error)
}

// CheckoutRequest describes a hosted checkout session to create.
type CheckoutRequest struct {
	PriceID    string
	CustomerID string // provider customer ID, empty to let the provider create one
	UserID     string // carried in metadata, echoed back on checkout events
	Email      string
	SuccessURL string
	CancelURL  string

	// TrialDays grants a provider-side trial. Zero means charge immediately;
	// callers set zero for subjects that already had their trial.
	TrialDays int
}

// CheckoutLink is a hosted checkout session.
type CheckoutLink struct {
	URL       string
	SessionID string
	ExpiresAt time.Time
}

// PortalLink is a customer portal session.
type PortalLink struct {
	URL       string
	ExpiresAt time.Time
}

// RemoteSubscription is the provider-side view of a subscription, used for
// reconciliation and status display.
type RemoteSubscription struct {
	ID                string
	CustomerID        string
	Status            string
	Plan              string
	TrialEndsAt       *time.Time
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	CancelAtPeriodEnd bool
}

// Active reports whether the remote subscription currently grants access.
func (r *RemoteSubscription) Active() bool {
	return r != nil && activeStatus(r.Status)
}
