package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// SubjectStore is the Gate's view of billing subject persistence. The Gate is
// the only writer of the trial flag; all other subject fields belong to the
// billing event ingestor, so the two paths never race on the same column.
type SubjectStore interface {
	// Get retrieves a subject snapshot by user ID.
	// Returns ErrSubjectNotFound if no subject exists.
	Get(ctx context.Context, id uuid.UUID) (*Subject, error)

	// ConsumeTrialMatch flips trial_match_used from false to true as a single
	// conditional update. Returns false when the flag was already set, which
	// under concurrency means another caller won the trial slot.
	ConsumeTrialMatch(ctx context.Context, id uuid.UUID) (bool, error)
}

// UsageSource counts committed quota-consuming records for a tenant within a
// half-open creation-time window.
type UsageSource interface {
	CountMatches(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error)
}

// Gate is the only entry point that may authorize creation of a
// quota-consuming record.
type Gate struct {
	eval     *Evaluator
	subjects SubjectStore
	usage    UsageSource
	log      *slog.Logger
	now      func() time.Time
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithLogger sets the gate's logger.
func WithLogger(log *slog.Logger) GateOption {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// WithClock overrides the gate's time source. Intended for tests that need
// deterministic trial and cycle boundaries.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGate creates a Gate. Panics on nil dependencies to fail fast during
// initialization.
func NewGate(eval *Evaluator, subjects SubjectStore, usage UsageSource, opts ...GateOption) *Gate {
	if eval == nil {
		panic("entitlement: Evaluator is required")
	}
	if subjects == nil {
		panic("entitlement: SubjectStore is required")
	}
	if usage == nil {
		panic("entitlement: UsageSource is required")
	}

	g := &Gate{
		eval:     eval,
		subjects: subjects,
		usage:    usage,
		log:      slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TryConsume evaluates the subject and, when the decision burns the one-shot
// trial slot, records the consumption via compare-and-set. Under concurrent
// calls for the same subject at most one trial consumption succeeds; losers
// receive Deny(TRIAL_EXHAUSTED).
//
// The paid branch is count-then-decide: a brief over-admission at the exact
// quota boundary under heavy concurrency is accepted, bounded to one unit.
//
// Store failures propagate as errors with no partial state change.
func (g *Gate) TryConsume(ctx context.Context, subjectID uuid.UUID) (Decision, error) {
	subject, err := g.subjects.Get(ctx, subjectID)
	if err != nil {
		return Decision{}, err
	}

	now := g.now()
	decision, err := g.eval.Evaluate(*subject, now, g.usageFunc(ctx, subject.TenantID))
	if err != nil {
		return Decision{}, err
	}
	if !decision.Allowed {
		return decision, nil
	}

	if decision.ConsumesTrial {
		won, err := g.subjects.ConsumeTrialMatch(ctx, subject.ID)
		if err != nil {
			return Decision{}, errors.Join(ErrConsumeFailed, err)
		}
		if !won {
			return Deny(DenyTrialExhausted), nil
		}
		g.log.InfoContext(ctx, "trial match consumed",
			slog.String("subject_id", subject.ID.String()))
	}

	return decision, nil
}

// Status returns the subject's quota view without consuming anything.
func (g *Gate) Status(ctx context.Context, subjectID uuid.UUID) (QuotaStatus, error) {
	subject, err := g.subjects.Get(ctx, subjectID)
	if err != nil {
		return QuotaStatus{}, err
	}
	return g.eval.Status(*subject, g.now(), g.usageFunc(ctx, subject.TenantID))
}

func (g *Gate) usageFunc(ctx context.Context, tenantID uuid.UUID) UsageFunc {
	return func(w Window) (int64, error) {
		return g.usage.CountMatches(ctx, tenantID, w.Start, w.End)
	}
}
