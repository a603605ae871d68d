package entitlement

import (
	"errors"
	"time"
)

// UsageFunc returns the number of quota-consuming records created inside the
// given window for the subject's tenant. It is invoked only when the decision
// actually depends on usage (the paid-period branch), never for superadmins
// or trial subjects.
type UsageFunc func(w Window) (int64, error)

// Evaluator is the pure entitlement decision function. It holds only the
// injected quota configuration and has no other state.
type Evaluator struct {
	cfg Config
}

// NewEvaluator validates the configuration and returns an Evaluator.
func NewEvaluator(cfg Config) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{cfg: cfg}, nil
}

// Config returns the injected quota configuration.
func (e *Evaluator) Config() Config {
	return e.cfg
}

// Evaluate decides whether the subject may consume one unit of quota at the
// given instant. Rules short-circuit in strict precedence order:
//
//  1. superadmin: always allowed, nothing counted or consumed
//  2. no plan: NO_ACTIVE_PLAN
//  3. subscription present and still inside the trial window
//     ("trial-with-card"): one-shot trial slot
//  4. subscription present, trial absent or expired: paid billing cycle quota
//  5. no subscription but inside the trial window ("trial-without-card"):
//     one-shot trial slot
//  6. otherwise: NO_SUBSCRIPTION
//
// Trial-with-card must precede the paid branch: a subscription ID can exist
// while the provider-side trial is still running (card authorized, not yet
// charged), and conflating the two would grant full paid quota during trial.
//
// An error is returned only when usage cannot be counted; it is operational
// and distinct from any Deny reason.
func (e *Evaluator) Evaluate(s Subject, now time.Time, usage UsageFunc) (Decision, error) {
	if s.IsSuperadmin {
		return Allow(), nil
	}

	if s.Plan == "" {
		return Deny(DenyNoActivePlan), nil
	}

	if s.HasSubscription() {
		if s.InTrialWindow(now) {
			return trialDecision(s), nil
		}

		quota := e.cfg.QuotaFor(s.Plan)
		w := PaidUsageWindow(s, now)
		used, err := usage(w)
		if err != nil {
			return Decision{}, errors.Join(ErrUsageUnavailable, err)
		}
		if used >= quota {
			return DenyQuota(quota, used, w.End), nil
		}
		return Allow(), nil
	}

	if s.InTrialWindow(now) {
		return trialDecision(s), nil
	}

	return Deny(DenyNoSubscription), nil
}

func trialDecision(s Subject) Decision {
	if s.TrialMatchUsed {
		return Deny(DenyTrialExhausted)
	}
	return AllowTrial()
}

// QuotaStatus is the read-only quota view rendered to dashboards. Plan is a
// display label: a paid tier name, "TRIAL" inside the trial window, or
// "NO_SUBSCRIPTION" when nothing grants access.
type QuotaStatus struct {
	Plan      string     `json:"plan"`
	Quota     int64      `json:"quota"`
	Used      int64      `json:"used"`
	Remaining int64      `json:"remaining"`
	ResetsAt  *time.Time `json:"resets_at"`
}

// Status reproduces Evaluate's branch selection without consuming anything.
// The only side effect is the usage read on the paid branch.
func (e *Evaluator) Status(s Subject, now time.Time, usage UsageFunc) (QuotaStatus, error) {
	if s.HasSubscription() {
		if s.InTrialWindow(now) {
			return e.trialStatus(s), nil
		}

		quota := e.cfg.QuotaFor(s.Plan)
		w := PaidUsageWindow(s, now)
		used, err := usage(w)
		if err != nil {
			return QuotaStatus{}, errors.Join(ErrUsageUnavailable, err)
		}
		resetsAt := w.End
		return QuotaStatus{
			Plan:      string(s.Plan),
			Quota:     quota,
			Used:      used,
			Remaining: max(0, quota-used),
			ResetsAt:  &resetsAt,
		}, nil
	}

	if s.InTrialWindow(now) {
		return e.trialStatus(s), nil
	}

	return QuotaStatus{Plan: string(DenyNoSubscription)}, nil
}

func (e *Evaluator) trialStatus(s Subject) QuotaStatus {
	st := QuotaStatus{
		Plan:  "TRIAL",
		Quota: e.cfg.TrialMatches,
	}
	if s.TrialMatchUsed {
		st.Used = e.cfg.TrialMatches
	} else {
		st.Remaining = e.cfg.TrialMatches
	}
	return st
}
