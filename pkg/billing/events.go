package billing

import "time"

// EventType is the normalized billing event set. Provider adapters map their
// native webhook types onto these; the Ingestor only ever sees this set.
type EventType string

const (
	EventCheckoutCompleted       EventType = "checkout_completed"
	EventSubscriptionUpdated     EventType = "subscription_updated"
	EventSubscriptionDeleted     EventType = "subscription_deleted"
	EventInvoicePaymentSucceeded EventType = "invoice_payment_succeeded"
	EventInvoicePaymentFailed    EventType = "invoice_payment_failed"
	EventTrialWillEnd            EventType = "trial_will_end"
)

// Invoice billing reasons that mark a subject active. Other reasons (one-off
// charges, manual invoices) do not touch subscription state.
const (
	ReasonSubscriptionCreate = "subscription_create"
	ReasonSubscriptionCycle  = "subscription_cycle"
)

// Event is a normalized, already-verified billing event. Subject identity
// travels as the provider customer ID; checkout events additionally carry the
// user ID placed in checkout metadata, since the customer mapping may not
// exist locally yet at that point.
type Event struct {
	ID   string
	Type EventType

	CustomerID     string
	UserID         string // from checkout metadata, checkout events only
	SubscriptionID string

	Plan   string // provider plan label, e.g. "COACH"
	Status string // provider subscription status, e.g. "trialing"

	TrialEndsAt *time.Time
	PeriodStart *time.Time
	PeriodEnd   *time.Time

	// BillingReason qualifies invoice events.
	BillingReason string

	// ProviderEvent keeps the original event name for logging.
	ProviderEvent string

	Raw map[string]any
}

// activeStatus reports whether a provider status grants access.
func activeStatus(status string) bool {
	return status == "active" || status == "trialing"
}
