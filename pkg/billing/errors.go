package billing

import "errors"

var (
	ErrMissingAPIKey        = errors.New("billing: provider API key is required")
	ErrMissingWebhookSecret = errors.New("billing: provider webhook secret is required")
	ErrInvalidEnvironment   = errors.New("billing: invalid provider environment")
	ErrWebhookVerification  = errors.New("billing: webhook signature verification failed")
	ErrMalformedEvent       = errors.New("billing: malformed webhook payload")

	ErrUnknownPlan         = errors.New("billing: unknown plan")
	ErrNoSubscription      = errors.New("billing: no active subscription")
	ErrNoCustomer          = errors.New("billing: no provider customer on record")
	ErrNoCheckoutURL       = errors.New("billing: no checkout URL returned from provider")
	ErrNoPortalURL         = errors.New("billing: no portal URL returned from provider")
	ErrSelfServeRestricted = errors.New("billing: plan is not available for self-serve checkout")

	ErrSaveFailed = errors.New("billing: failed to persist subject billing state")
)
