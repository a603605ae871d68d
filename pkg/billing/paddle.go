package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider implements Provider for Paddle.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	prices   Config
}

// NewPaddleProvider creates a Paddle-backed billing provider. The price
// configuration is needed to translate Paddle price IDs into plan tiers when
// normalizing webhook events.
func NewPaddleProvider(cfg PaddleConfig, prices Config) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
		prices:   prices,
	}, nil
}

// ParseWebhook validates the Paddle signature and normalizes the event.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for verification: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerification, err)
	}
	if !valid {
		return nil, ErrWebhookVerification
	}

	var envelope struct {
		EventID   string         `json:"event_id"`
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, errors.Join(ErrMalformedEvent, err)
	}

	ev := &Event{
		ID:            envelope.EventID,
		Type:          p.mapEventType(envelope.EventType, envelope.Data),
		ProviderEvent: envelope.EventType,
		Raw:           envelope.Data,
	}

	switch {
	case strings.HasPrefix(envelope.EventType, "subscription."):
		p.fillFromSubscription(ev, envelope.Data)
	case strings.HasPrefix(envelope.EventType, "transaction."):
		p.fillFromTransaction(ev, envelope.Data)
	}

	return ev, nil
}

// mapEventType maps Paddle webhook names onto the normalized event set.
// Transactions need their origin to tell checkouts from renewal invoices.
func (p *PaddleProvider) mapEventType(paddleEvent string, data map[string]any) EventType {
	switch paddleEvent {
	case "subscription.created":
		return EventCheckoutCompleted
	case "subscription.updated", "subscription.activated", "subscription.resumed", "subscription.past_due":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionDeleted
	case "subscription.trialing":
		// Paddle has no dedicated pre-debit reminder event; the trialing
		// notification carries the trial end, which is the debit date.
		return EventTrialWillEnd
	case "transaction.completed":
		if origin, _ := data["origin"].(string); origin == "subscription_recurring" || origin == "subscription_charge" {
			return EventInvoicePaymentSucceeded
		}
		return EventCheckoutCompleted
	case "transaction.payment_failed":
		return EventInvoicePaymentFailed
	default:
		return EventType(paddleEvent)
	}
}

func (p *PaddleProvider) fillFromSubscription(ev *Event, data map[string]any) {
	if id, ok := data["id"].(string); ok {
		ev.SubscriptionID = id
	}
	if status, ok := data["status"].(string); ok {
		ev.Status = status
	}
	if customerID, ok := data["customer_id"].(string); ok {
		ev.CustomerID = customerID
	}

	if custom, ok := data["custom_data"].(map[string]any); ok {
		if userID, ok := custom["user_id"].(string); ok {
			ev.UserID = userID
		}
		if plan, ok := custom["plan"].(string); ok {
			ev.Plan = plan
		}
	}

	if ev.Plan == "" {
		if priceID := firstItemPriceID(data); priceID != "" {
			if plan, ok := p.prices.PlanFor(priceID); ok {
				ev.Plan = string(plan)
			}
		}
	}

	if period, ok := data["current_billing_period"].(map[string]any); ok {
		ev.PeriodStart = parsePaddleTime(period["starts_at"])
		ev.PeriodEnd = parsePaddleTime(period["ends_at"])
	}

	// Trial bounds live on the subscription items.
	if items, ok := data["items"].([]any); ok && len(items) > 0 {
		if item, ok := items[0].(map[string]any); ok {
			if trial, ok := item["trial_dates"].(map[string]any); ok {
				ev.TrialEndsAt = parsePaddleTime(trial["ends_at"])
			}
		}
	}
}

// firstItemPriceID digs the price ID out of a subscription payload's first
// item. Subscription items nest the price object, unlike transaction items
// which carry a flat price_id.
func firstItemPriceID(data map[string]any) string {
	items, ok := data["items"].([]any)
	if !ok || len(items) == 0 {
		return ""
	}
	item, ok := items[0].(map[string]any)
	if !ok {
		return ""
	}
	price, ok := item["price"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := price["id"].(string)
	return id
}

func (p *PaddleProvider) fillFromTransaction(ev *Event, data map[string]any) {
	if subID, ok := data["subscription_id"].(string); ok {
		ev.SubscriptionID = subID
	}
	if customerID, ok := data["customer_id"].(string); ok {
		ev.CustomerID = customerID
	}
	if status, ok := data["status"].(string); ok {
		ev.Status = status
	}

	switch origin, _ := data["origin"].(string); origin {
	case "subscription_recurring":
		ev.BillingReason = ReasonSubscriptionCycle
	case "subscription_charge":
		ev.BillingReason = ReasonSubscriptionCreate
	}

	if custom, ok := data["custom_data"].(map[string]any); ok {
		if userID, ok := custom["user_id"].(string); ok {
			ev.UserID = userID
		}
		if plan, ok := custom["plan"].(string); ok {
			ev.Plan = plan
		}
	}

	if ev.Plan == "" {
		if items, ok := data["items"].([]any); ok && len(items) > 0 {
			if item, ok := items[0].(map[string]any); ok {
				if priceID, ok := item["price_id"].(string); ok {
					if plan, ok := p.prices.PlanFor(priceID); ok {
						ev.Plan = string(plan)
					}
				}
			}
		}
	}

	if period, ok := data["billing_period"].(map[string]any); ok {
		ev.PeriodStart = parsePaddleTime(period["starts_at"])
		ev.PeriodEnd = parsePaddleTime(period["ends_at"])
	}
}

// CreateCheckoutLink creates a hosted checkout session in Paddle.
func (p *PaddleProvider) CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	if req.PriceID == "" {
		return nil, errors.New("billing: price ID is required")
	}
	if req.UserID == "" {
		return nil, errors.New("billing: user ID is required")
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	customData := paddle.CustomData{
		"user_id": req.UserID,
	}
	if req.Email != "" {
		customData["email"] = req.Email
	}
	// The trial grant travels in custom data; the price's own trial settings
	// apply only when this is non-zero.
	customData["trial_days"] = req.TrialDays

	transactionReq := &paddle.CreateTransactionRequest{
		Items:      []paddle.CreateTransactionItems{*item},
		CustomData: customData,
	}
	if req.CustomerID != "" {
		transactionReq.CustomerID = paddle.PtrTo(req.CustomerID)
	}
	if req.SuccessURL != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle transaction: %w", err)
	}

	if transaction.Checkout == nil || transaction.Checkout.URL == nil {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutLink{
		URL:       *transaction.Checkout.URL,
		SessionID: transaction.ID,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

// GetCustomerPortalLink returns a link to Paddle's customer portal.
func (p *PaddleProvider) GetCustomerPortalLink(ctx context.Context, customerID, subscriptionID string) (*PortalLink, error) {
	if customerID == "" {
		return nil, ErrNoCustomer
	}

	portalReq := &paddle.CreateCustomerPortalSessionRequest{
		CustomerID: customerID,
	}
	if subscriptionID != "" {
		portalReq.SubscriptionIDs = []string{subscriptionID}
	}

	session, err := p.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx, portalReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle customer portal session: %w", err)
	}
	if session.URLs.General.Overview == "" {
		return nil, ErrNoPortalURL
	}

	return &PortalLink{
		URL:       session.URLs.General.Overview,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

// ActiveSubscription returns the customer's current subscription, if any
// grants access.
func (p *PaddleProvider) ActiveSubscription(ctx context.Context, customerID string) (*RemoteSubscription, error) {
	if customerID == "" {
		return nil, ErrNoSubscription
	}

	res, err := p.client.SubscriptionsClient.ListSubscriptions(ctx, &paddle.ListSubscriptionsRequest{
		CustomerID: []string{customerID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list paddle subscriptions: %w", err)
	}

	var found *RemoteSubscription
	err = res.Iter(ctx, func(sub *paddle.Subscription) (bool, error) {
		remote := p.toRemote(sub)
		if remote.Active() {
			found = remote
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate paddle subscriptions: %w", err)
	}
	if found == nil {
		return nil, ErrNoSubscription
	}
	return found, nil
}

// ChangePlan moves the subscription to another price. Trial upgrades bill the
// full amount immediately, ending the trial; post-trial upgrades prorate.
func (p *PaddleProvider) ChangePlan(ctx context.Context, subscriptionID, priceID string, endTrialNow bool) error {
	mode := paddle.ProrationBillingModeProratedImmediately
	if endTrialNow {
		mode = paddle.ProrationBillingModeFullImmediately
	}

	item := paddle.NewUpdateSubscriptionItemsSubscriptionUpdateItemFromCatalog(&paddle.SubscriptionUpdateItemFromCatalog{
		PriceID:  priceID,
		Quantity: 1,
	})

	_, err := p.client.SubscriptionsClient.UpdateSubscription(ctx, &paddle.UpdateSubscriptionRequest{
		SubscriptionID:       subscriptionID,
		Items:                paddle.NewPatchField([]paddle.UpdateSubscriptionItems{*item}),
		ProrationBillingMode: paddle.NewPatchField(mode),
	})
	if err != nil {
		return fmt.Errorf("failed to update paddle subscription: %w", err)
	}
	return nil
}

// CancelAtPeriodEnd schedules cancellation for the end of the billing period.
func (p *PaddleProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*time.Time, error) {
	sub, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: subscriptionID,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromNextBillingPeriod),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel paddle subscription: %w", err)
	}

	if sub.ScheduledChange != nil {
		if at := parsePaddleTime(sub.ScheduledChange.EffectiveAt); at != nil {
			return at, nil
		}
	}
	return nil, nil
}

func (p *PaddleProvider) toRemote(sub *paddle.Subscription) *RemoteSubscription {
	remote := &RemoteSubscription{
		ID:         sub.ID,
		CustomerID: sub.CustomerID,
		Status:     string(sub.Status),
	}

	if sub.CurrentBillingPeriod != nil {
		remote.PeriodStart = parsePaddleTime(sub.CurrentBillingPeriod.StartsAt)
		remote.PeriodEnd = parsePaddleTime(sub.CurrentBillingPeriod.EndsAt)
	}
	if sub.ScheduledChange != nil && sub.ScheduledChange.Action == paddle.ScheduledChangeActionCancel {
		remote.CancelAtPeriodEnd = true
	}

	if len(sub.Items) > 0 {
		item := sub.Items[0]
		if plan, ok := p.prices.PlanFor(item.Price.ID); ok {
			remote.Plan = string(plan)
		}
		if item.TrialDates != nil {
			remote.TrialEndsAt = parsePaddleTime(item.TrialDates.EndsAt)
		}
	}

	return remote
}

// parsePaddleTime converts Paddle's RFC3339 string timestamps, tolerating
// missing or malformed values.
func parsePaddleTime(v any) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
