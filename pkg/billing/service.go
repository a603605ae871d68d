package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/insightball/backend/pkg/entitlement"
)

// Config maps plan tiers to provider price IDs.
type Config struct {
	PriceCoach string `env:"BILLING_PRICE_COACH,required"`
	PriceClub  string `env:"BILLING_PRICE_CLUB,required"`
}

// PriceFor returns the provider price ID for a plan.
func (c Config) PriceFor(p entitlement.Plan) (string, error) {
	switch p {
	case entitlement.PlanCoach:
		return c.PriceCoach, nil
	case entitlement.PlanClub:
		return c.PriceClub, nil
	}
	return "", ErrUnknownPlan
}

// PlanFor resolves a provider price ID back to a plan tier.
func (c Config) PlanFor(priceID string) (entitlement.Plan, bool) {
	switch priceID {
	case c.PriceCoach:
		return entitlement.PlanCoach, true
	case c.PriceClub:
		return entitlement.PlanClub, true
	}
	return "", false
}

// SubscriptionStatus is the dashboard view of a subject's subscription.
type SubscriptionStatus struct {
	Active            bool       `json:"active"`
	Plan              string     `json:"plan"`
	Status            string     `json:"status"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
}

// Service exposes the provider-facing subscription surfaces: checkout,
// portal, status, upgrade and cancellation. All state mutations resulting
// from these calls land through webhooks; the service itself only writes
// local state when adopting a subscription found during reconciliation.
type Service struct {
	cfg      Config
	quota    entitlement.Config
	provider Provider
	subjects SubjectStore
	log      *slog.Logger
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the service logger.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithServiceClock overrides the time source for tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service. Panics on nil dependencies.
func NewService(cfg Config, quota entitlement.Config, provider Provider, subjects SubjectStore, opts ...ServiceOption) *Service {
	if provider == nil {
		panic("billing: Provider is required")
	}
	if subjects == nil {
		panic("billing: SubjectStore is required")
	}
	s := &Service{
		cfg:      cfg,
		quota:    quota,
		provider: provider,
		subjects: subjects,
		log:      slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCheckout creates a hosted checkout session for a plan. Only COACH is
// self-serve; CLUB subscriptions go through a manual quote flow. A subject
// whose trial was ever granted checks out without a second trial period.
func (s *Service) CreateCheckout(ctx context.Context, subjectID uuid.UUID, plan entitlement.Plan, successURL, cancelURL string) (*CheckoutLink, error) {
	if plan != entitlement.PlanCoach {
		return nil, ErrSelfServeRestricted
	}

	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	priceID, err := s.cfg.PriceFor(plan)
	if err != nil {
		return nil, err
	}

	trialDays := 0
	if subject.TrialEndsAt == nil {
		trialDays = s.quota.TrialDays
	}

	return s.provider.CreateCheckoutLink(ctx, CheckoutRequest{
		PriceID:    priceID,
		CustomerID: subject.CustomerID,
		UserID:     subject.ID.String(),
		Email:      subject.Email,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		TrialDays:  trialDays,
	})
}

// PortalLink returns a customer portal session for the subject.
func (s *Service) PortalLink(ctx context.Context, subjectID uuid.UUID) (*PortalLink, error) {
	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject.CustomerID == "" {
		return nil, ErrNoCustomer
	}
	return s.provider.GetCustomerPortalLink(ctx, subject.CustomerID, subject.SubscriptionID)
}

// Status reports the subject's subscription state. When the local record has
// a customer but no subscription, the provider is consulted read-only and a
// found subscription is adopted; provider failures degrade to "inactive"
// rather than erroring, since this surface is display-only.
func (s *Service) Status(ctx context.Context, subjectID uuid.UUID) (*SubscriptionStatus, error) {
	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	if subject.SubscriptionID == "" {
		remote := s.reconcile(ctx, subject)
		if remote == nil {
			return &SubscriptionStatus{Plan: string(subject.Plan), Status: "inactive"}, nil
		}
		return remoteStatus(subject, remote), nil
	}

	remote, err := s.provider.ActiveSubscription(ctx, subject.CustomerID)
	if err != nil {
		if errors.Is(err, ErrNoSubscription) {
			return &SubscriptionStatus{Plan: string(subject.Plan), Status: "inactive"}, nil
		}
		s.log.WarnContext(ctx, "provider status lookup failed",
			slog.String("subject_id", subject.ID.String()),
			slog.Any("error", err))
		return &SubscriptionStatus{Plan: string(subject.Plan), Status: "inactive"}, nil
	}
	return remoteStatus(subject, remote), nil
}

// UpgradePlan moves a COACH subscription to CLUB. During a trial the trial
// ends immediately and billing starts; after it, the change is prorated. The
// local plan record is updated only by the subsequent subscription-updated
// webhook, never optimistically here.
func (s *Service) UpgradePlan(ctx context.Context, subjectID uuid.UUID, plan entitlement.Plan) error {
	if plan != entitlement.PlanClub {
		return ErrUnknownPlan
	}

	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return err
	}
	if subject.SubscriptionID == "" {
		return ErrNoSubscription
	}

	priceID, err := s.cfg.PriceFor(plan)
	if err != nil {
		return err
	}

	endTrialNow := subject.InTrialWindow(s.now())
	return s.provider.ChangePlan(ctx, subject.SubscriptionID, priceID, endTrialNow)
}

// Cancel schedules cancellation at period end. Works both during trial (no
// charge ever happens) and for active subscriptions (access until the end of
// the paid period). When the local record lost the subscription ID, it is
// recovered from the provider first.
func (s *Service) Cancel(ctx context.Context, subjectID uuid.UUID) (*time.Time, error) {
	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	if subject.SubscriptionID == "" {
		if remote := s.reconcile(ctx, subject); remote == nil {
			return nil, ErrNoSubscription
		}
	}

	return s.provider.CancelAtPeriodEnd(ctx, subject.SubscriptionID)
}

// reconcile looks up the subject's active subscription at the provider and
// adopts its identity locally. Best-effort: any failure is treated as "no
// active subscription".
func (s *Service) reconcile(ctx context.Context, subject *entitlement.Subject) *RemoteSubscription {
	if subject.CustomerID == "" {
		return nil
	}

	remote, err := s.provider.ActiveSubscription(ctx, subject.CustomerID)
	if err != nil || !remote.Active() {
		if err != nil && !errors.Is(err, ErrNoSubscription) {
			s.log.WarnContext(ctx, "subscription reconciliation lookup failed",
				slog.String("subject_id", subject.ID.String()),
				slog.Any("error", err))
		}
		return nil
	}

	subject.SubscriptionID = remote.ID
	if err := s.subjects.SaveBilling(ctx, subject); err != nil {
		s.log.ErrorContext(ctx, "failed to adopt reconciled subscription",
			slog.String("subject_id", subject.ID.String()),
			slog.Any("error", err))
		// The remote lookup still stands for display purposes.
	}
	return remote
}

func remoteStatus(subject *entitlement.Subject, remote *RemoteSubscription) *SubscriptionStatus {
	return &SubscriptionStatus{
		Active:            remote.Active(),
		Plan:              string(subject.Plan),
		Status:            remote.Status,
		CurrentPeriodEnd:  remote.PeriodEnd,
		CancelAtPeriodEnd: remote.CancelAtPeriodEnd,
	}
}
