package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	billingcore "github.com/insightball/backend/pkg/billing"
	"github.com/insightball/backend/pkg/binder"
	"github.com/insightball/backend/pkg/entitlement"
	"github.com/insightball/backend/pkg/logger"
)

// maxWebhookBody caps webhook payload reads; Paddle events are small.
const maxWebhookBody = 1 << 20

// signatureHeader carries Paddle's webhook signature.
const signatureHeader = "Paddle-Signature"

// Service handles the billing endpoints. The webhook route is mounted
// unauthenticated (the signature is its authentication); the self-serve
// routes require a subject in the request context.
type Service struct {
	billing  *billingcore.Service
	ingestor *billingcore.Ingestor
	provider billingcore.Provider
	dedup    billingcore.Deduper
	log      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithDeduper installs an event-ID deduplication store for the webhook path.
func WithDeduper(d billingcore.Deduper) ServiceOption {
	return func(s *Service) {
		if d != nil {
			s.dedup = d
		}
	}
}

// NewService creates the billing module. Panics on nil dependencies.
func NewService(svc *billingcore.Service, ingestor *billingcore.Ingestor, provider billingcore.Provider, opts ...ServiceOption) *Service {
	if svc == nil {
		panic("billing: Service is required")
	}
	if ingestor == nil {
		panic("billing: Ingestor is required")
	}
	if provider == nil {
		panic("billing: Provider is required")
	}
	s := &Service{
		billing:  svc,
		ingestor: ingestor,
		provider: provider,
		dedup:    billingcore.NoopDeduper{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleWebhook returns the webhook handler, mounted outside authentication.
func (s *Service) HandleWebhook() http.Handler {
	return http.HandlerFunc(s.webhook)
}

// Handle returns the authenticated self-serve router.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/checkout", s.checkout)
	r.Post("/portal", s.portal)
	r.Get("/status", s.status)
	r.Post("/upgrade", s.upgrade)
	r.Post("/cancel", s.cancel)

	return r
}

func (s *Service) webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read payload")
		return
	}

	event, err := s.provider.ParseWebhook(ctx, payload, r.Header.Get(signatureHeader))
	if err != nil {
		s.log.WarnContext(ctx, "webhook rejected", logger.Error(err))
		writeError(w, http.StatusBadRequest, "invalid webhook")
		return
	}

	// The deduper is a fast-path guard; the ingestor itself is idempotent,
	// so a deduper outage degrades to redundant-but-safe processing.
	if event.ID != "" {
		seen, err := s.dedup.Seen(ctx, event.ID)
		if err != nil {
			s.log.WarnContext(ctx, "event dedup unavailable",
				logger.Error(err), logger.EventID(event.ID))
		} else if seen {
			s.log.InfoContext(ctx, "duplicate event skipped",
				logger.EventID(event.ID), logger.EventType(string(event.Type)))
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	if err := s.ingestor.Apply(ctx, event); err != nil {
		s.log.ErrorContext(ctx, "failed to apply billing event",
			logger.Error(err),
			logger.EventID(event.ID),
			logger.EventType(string(event.Type)))
		// 500 makes the provider redeliver. The event is deliberately not
		// marked seen yet, so the redelivery gets a real retry instead of
		// the duplicate fast path.
		writeError(w, http.StatusInternalServerError, "failed to apply event")
		return
	}

	if event.ID != "" {
		if err := s.dedup.Mark(ctx, event.ID); err != nil {
			s.log.WarnContext(ctx, "event dedup mark failed",
				logger.Error(err), logger.EventID(event.ID))
		}
	}

	w.WriteHeader(http.StatusOK)
}

// CheckoutRequest starts a subscription purchase.
type CheckoutRequest struct {
	Plan       string `json:"plan"`
	SuccessURL string `json:"success_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
}

func (s *Service) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, err := entitlement.SubjectIDFromContext(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CheckoutRequest
	if err := binder.JSON()(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, ok := entitlement.ParsePlan(req.Plan)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown plan")
		return
	}

	link, err := s.billing.CreateCheckout(ctx, subjectID, plan, req.SuccessURL, req.CancelURL)
	if err != nil {
		switch {
		case errors.Is(err, billingcore.ErrSelfServeRestricted):
			writeError(w, http.StatusForbidden, "this plan is not available for self-serve checkout")
		case errors.Is(err, entitlement.ErrSubjectNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			s.log.ErrorContext(ctx, "checkout failed",
				logger.Error(err), logger.SubjectID(subjectID))
			writeError(w, http.StatusBadGateway, "failed to create checkout")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": link.URL})
}

func (s *Service) portal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, err := entitlement.SubjectIDFromContext(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	link, err := s.billing.PortalLink(ctx, subjectID)
	if err != nil {
		switch {
		case errors.Is(err, billingcore.ErrNoCustomer):
			writeError(w, http.StatusNotFound, "no billing account exists yet")
		case errors.Is(err, entitlement.ErrSubjectNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			s.log.ErrorContext(ctx, "portal link failed",
				logger.Error(err), logger.SubjectID(subjectID))
			writeError(w, http.StatusBadGateway, "failed to create portal session")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": link.URL})
}

func (s *Service) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, err := entitlement.SubjectIDFromContext(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	st, err := s.billing.Status(ctx, subjectID)
	if err != nil {
		if errors.Is(err, entitlement.ErrSubjectNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		s.log.ErrorContext(ctx, "status lookup failed",
			logger.Error(err), logger.SubjectID(subjectID))
		writeError(w, http.StatusInternalServerError, "failed to load subscription status")
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// UpgradeRequest moves the subscription to a higher tier.
type UpgradeRequest struct {
	Plan string `json:"plan"`
}

func (s *Service) upgrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, err := entitlement.SubjectIDFromContext(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req UpgradeRequest
	if err := binder.JSON()(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, ok := entitlement.ParsePlan(req.Plan)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown plan")
		return
	}

	if err := s.billing.UpgradePlan(ctx, subjectID, plan); err != nil {
		switch {
		case errors.Is(err, billingcore.ErrUnknownPlan):
			writeError(w, http.StatusBadRequest, "upgrade target must be a higher tier")
		case errors.Is(err, billingcore.ErrNoSubscription):
			writeError(w, http.StatusConflict, "no subscription to upgrade")
		case errors.Is(err, entitlement.ErrSubjectNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			s.log.ErrorContext(ctx, "upgrade failed",
				logger.Error(err), logger.SubjectID(subjectID))
			writeError(w, http.StatusBadGateway, "failed to change plan")
		}
		return
	}

	// The new plan lands through the subscription-updated webhook.
	w.WriteHeader(http.StatusAccepted)
}

func (s *Service) cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, err := entitlement.SubjectIDFromContext(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	cancelAt, err := s.billing.Cancel(ctx, subjectID)
	if err != nil {
		switch {
		case errors.Is(err, billingcore.ErrNoSubscription):
			writeError(w, http.StatusConflict, "no subscription to cancel")
		case errors.Is(err, entitlement.ErrSubjectNotFound):
			writeError(w, http.StatusNotFound, "account not found")
		default:
			s.log.ErrorContext(ctx, "cancellation failed",
				logger.Error(err), logger.SubjectID(subjectID))
			writeError(w, http.StatusBadGateway, "failed to cancel subscription")
		}
		return
	}

	resp := struct {
		CancelAt *time.Time `json:"cancel_at,omitempty"`
	}{CancelAt: cancelAt}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
