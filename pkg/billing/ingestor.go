package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/insightball/backend/pkg/entitlement"
)

// SubjectStore is the Ingestor's view of billing state persistence. Save
// implementations must write billing fields only and never touch the trial
// consumption flag, which belongs to the entitlement Gate.
type SubjectStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entitlement.Subject, error)
	GetByCustomerID(ctx context.Context, customerID string) (*entitlement.Subject, error)
	SaveBilling(ctx context.Context, subject *entitlement.Subject) error
}

// TrialNotifier delivers the trial-ending reminder. Deduplication of repeated
// notifications is the notifier's concern.
type TrialNotifier interface {
	TrialEndingSoon(ctx context.Context, subject *entitlement.Subject, debitDate time.Time) error
}

// Ingestor applies normalized billing events to local subject state. Every
// application is idempotent: redelivering an event yields the same state as
// delivering it once, and unknown subjects are logged and dropped because
// providers redeliver test events and events for deleted accounts.
type Ingestor struct {
	subjects SubjectStore
	notifier TrialNotifier
	log      *slog.Logger
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithTrialNotifier wires the trial reminder side channel. Without it,
// TrialWillEnd events are acknowledged and ignored.
func WithTrialNotifier(n TrialNotifier) IngestorOption {
	return func(i *Ingestor) {
		if n != nil {
			i.notifier = n
		}
	}
}

// WithIngestorLogger sets the ingestor's logger.
func WithIngestorLogger(log *slog.Logger) IngestorOption {
	return func(i *Ingestor) {
		if log != nil {
			i.log = log
		}
	}
}

// NewIngestor creates an Ingestor. Panics on a nil store to fail fast.
func NewIngestor(subjects SubjectStore, opts ...IngestorOption) *Ingestor {
	if subjects == nil {
		panic("billing: SubjectStore is required")
	}
	i := &Ingestor{
		subjects: subjects,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Apply records the event's effect on local billing state. Errors are
// returned only for infrastructure failures so the provider retries delivery;
// events that cannot or need not be applied are logged and swallowed.
func (i *Ingestor) Apply(ctx context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}

	switch ev.Type {
	case EventCheckoutCompleted:
		return i.applyCheckoutCompleted(ctx, ev)
	case EventSubscriptionUpdated:
		return i.applySubscriptionUpdated(ctx, ev)
	case EventSubscriptionDeleted:
		return i.applySubscriptionDeleted(ctx, ev)
	case EventInvoicePaymentSucceeded:
		return i.applyInvoicePaymentSucceeded(ctx, ev)
	case EventInvoicePaymentFailed:
		return i.applyInvoicePaymentFailed(ctx, ev)
	case EventTrialWillEnd:
		return i.applyTrialWillEnd(ctx, ev)
	default:
		i.log.DebugContext(ctx, "ignoring unhandled billing event",
			slog.String("event_type", string(ev.Type)),
			slog.String("provider_event", ev.ProviderEvent))
		return nil
	}
}

// applyCheckoutCompleted records a newly created subscription. The trial end
// is adopted only when no trial was ever granted before, so resubscribing
// never farms a second trial.
func (i *Ingestor) applyCheckoutCompleted(ctx context.Context, ev *Event) error {
	subject, err := i.resolveSubject(ctx, ev)
	if err != nil || subject == nil {
		return err
	}

	changed := false

	if plan, ok := entitlement.ParsePlan(ev.Plan); ok && subject.Plan != plan {
		subject.Plan = plan
		changed = true
	} else if subject.Plan == "" {
		subject.Plan = entitlement.PlanCoach
		changed = true
	}

	if ev.SubscriptionID != "" && subject.SubscriptionID != ev.SubscriptionID {
		subject.SubscriptionID = ev.SubscriptionID
		changed = true
	}
	if ev.CustomerID != "" && subject.CustomerID != ev.CustomerID {
		subject.CustomerID = ev.CustomerID
		changed = true
	}
	if !subject.Active {
		subject.Active = true
		changed = true
	}

	// Set-once: an already granted trial stays as it is.
	if ev.TrialEndsAt != nil && subject.TrialEndsAt == nil {
		t := ev.TrialEndsAt.UTC()
		subject.TrialEndsAt = &t
		changed = true
	}

	changed = applyPeriod(subject, ev) || changed

	return i.save(ctx, subject, ev, changed)
}

// applySubscriptionUpdated re-asserts plan and activity from provider state.
// This event is the single source of truth for the plan; plan upgrades made
// through the API surface only land here.
func (i *Ingestor) applySubscriptionUpdated(ctx context.Context, ev *Event) error {
	subject, err := i.resolveSubject(ctx, ev)
	if err != nil || subject == nil {
		return err
	}

	changed := false

	if active := activeStatus(ev.Status); subject.Active != active {
		subject.Active = active
		changed = true
	}
	if plan, ok := entitlement.ParsePlan(ev.Plan); ok && subject.Plan != plan {
		subject.Plan = plan
		changed = true
	}
	if ev.SubscriptionID != "" && subject.SubscriptionID != ev.SubscriptionID {
		subject.SubscriptionID = ev.SubscriptionID
		changed = true
	}

	changed = applyPeriod(subject, ev) || changed

	return i.save(ctx, subject, ev, changed)
}

// applySubscriptionDeleted clears the subscription identity but keeps the
// trial record, so a deleted-then-recreated subscription cannot re-enter the
// trial path.
func (i *Ingestor) applySubscriptionDeleted(ctx context.Context, ev *Event) error {
	subject, err := i.resolveSubject(ctx, ev)
	if err != nil || subject == nil {
		return err
	}

	changed := false
	if subject.SubscriptionID != "" {
		subject.SubscriptionID = ""
		changed = true
	}
	if subject.Active {
		subject.Active = false
		changed = true
	}

	return i.save(ctx, subject, ev, changed)
}

func (i *Ingestor) applyInvoicePaymentSucceeded(ctx context.Context, ev *Event) error {
	if ev.BillingReason != ReasonSubscriptionCreate && ev.BillingReason != ReasonSubscriptionCycle {
		return nil
	}

	subject, err := i.resolveSubject(ctx, ev)
	if err != nil || subject == nil {
		return err
	}

	changed := false
	if !subject.Active {
		subject.Active = true
		changed = true
	}
	changed = applyPeriod(subject, ev) || changed

	return i.save(ctx, subject, ev, changed)
}

// applyInvoicePaymentFailed marks the subject inactive without revoking the
// plan or the subscription identity; recovery is a later successful invoice.
func (i *Ingestor) applyInvoicePaymentFailed(ctx context.Context, ev *Event) error {
	subject, err := i.resolveSubject(ctx, ev)
	if err != nil || subject == nil {
		return err
	}

	changed := false
	if subject.Active {
		subject.Active = false
		changed = true
	}

	return i.save(ctx, subject, ev, changed)
}

// applyTrialWillEnd triggers the reminder side channel only; billing state is
// not mutated.
func (i *Ingestor) applyTrialWillEnd(ctx context.Context, ev *Event) error {
	if i.notifier == nil || ev.TrialEndsAt == nil {
		return nil
	}

	subject, err := i.resolveSubject(ctx, ev)
	if err != nil || subject == nil {
		return err
	}

	if err := i.notifier.TrialEndingSoon(ctx, subject, ev.TrialEndsAt.UTC()); err != nil {
		// Reminder failures are not worth a provider redelivery loop.
		i.log.ErrorContext(ctx, "trial reminder delivery failed",
			slog.String("subject_id", subject.ID.String()),
			slog.Any("error", err))
	}
	return nil
}

// resolveSubject finds the subject an event addresses. A nil, nil return
// means the event should be dropped: missing subjects are expected for test
// events and deleted accounts and must not fail the ingestion path.
func (i *Ingestor) resolveSubject(ctx context.Context, ev *Event) (*entitlement.Subject, error) {
	if ev.UserID != "" {
		if id, err := uuid.Parse(ev.UserID); err == nil {
			subject, err := i.subjects.GetByID(ctx, id)
			if err == nil {
				return subject, nil
			}
			if !errors.Is(err, entitlement.ErrSubjectNotFound) {
				return nil, err
			}
		}
	}

	if ev.CustomerID != "" {
		subject, err := i.subjects.GetByCustomerID(ctx, ev.CustomerID)
		if err == nil {
			return subject, nil
		}
		if !errors.Is(err, entitlement.ErrSubjectNotFound) {
			return nil, err
		}
	}

	i.log.WarnContext(ctx, "billing event for unknown subject dropped",
		slog.String("event_id", ev.ID),
		slog.String("event_type", string(ev.Type)),
		slog.String("customer_id", ev.CustomerID))
	return nil, nil
}

func (i *Ingestor) save(ctx context.Context, subject *entitlement.Subject, ev *Event, changed bool) error {
	if !changed {
		// Redelivered event with no new information.
		i.log.DebugContext(ctx, "billing event is a no-op",
			slog.String("event_id", ev.ID),
			slog.String("event_type", string(ev.Type)))
		return nil
	}
	if err := i.subjects.SaveBilling(ctx, subject); err != nil {
		return errors.Join(ErrSaveFailed, err)
	}
	i.log.InfoContext(ctx, "billing state updated",
		slog.String("subject_id", subject.ID.String()),
		slog.String("event_type", string(ev.Type)),
		slog.String("provider_event", ev.ProviderEvent))
	return nil
}

func applyPeriod(subject *entitlement.Subject, ev *Event) bool {
	changed := false
	if ev.PeriodStart != nil && !equalTime(subject.CurrentPeriodStart, ev.PeriodStart) {
		t := ev.PeriodStart.UTC()
		subject.CurrentPeriodStart = &t
		changed = true
	}
	if ev.PeriodEnd != nil && !equalTime(subject.CurrentPeriodEnd, ev.PeriodEnd) {
		t := ev.PeriodEnd.UTC()
		subject.CurrentPeriodEnd = &t
		changed = true
	}
	return changed
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
