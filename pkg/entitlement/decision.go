package entitlement

import "time"

// DenyReason is a stable token callers branch on. Reasons are user-facing and
// non-retryable without an external action (subscribe, upgrade).
type DenyReason string

const (
	DenyNoActivePlan   DenyReason = "NO_ACTIVE_PLAN"
	DenyTrialExhausted DenyReason = "TRIAL_EXHAUSTED"
	DenyQuotaExceeded  DenyReason = "QUOTA_EXCEEDED"
	DenyNoSubscription DenyReason = "NO_SUBSCRIPTION"
)

// Decision is the outcome of an entitlement evaluation.
type Decision struct {
	Allowed bool

	// ConsumesTrial marks an allowance that must burn the one-shot trial
	// flag. The Gate turns it into a compare-and-set; a pure Evaluate call
	// never mutates anything.
	ConsumesTrial bool

	// Reason is set only on denials.
	Reason DenyReason

	// Quota metadata accompanies QUOTA_EXCEEDED so callers can render
	// ceiling, usage and the reset instant.
	Quota    int64
	Used     int64
	ResetsAt *time.Time
}

// Allow is an unconditional allowance (superadmin or paid-period headroom).
func Allow() Decision {
	return Decision{Allowed: true}
}

// AllowTrial is an allowance that consumes the one-shot trial slot.
func AllowTrial() Decision {
	return Decision{Allowed: true, ConsumesTrial: true}
}

// Deny refuses with a typed reason.
func Deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// DenyQuota refuses with QUOTA_EXCEEDED and display metadata.
func DenyQuota(quota, used int64, resetsAt time.Time) Decision {
	return Decision{
		Reason:   DenyQuotaExceeded,
		Quota:    quota,
		Used:     used,
		ResetsAt: &resetsAt,
	}
}
