package entitlement

import "errors"

var (
	ErrInvalidConfig = errors.New("entitlement: invalid quota configuration")

	ErrSubjectNotFound = errors.New("entitlement: billing subject not found")
	ErrTenantNotFound  = errors.New("entitlement: tenant not resolved for subject")

	// ErrUsageUnavailable wraps counter failures. It is operational, not a
	// Deny reason: the caller could not be checked, not refused.
	ErrUsageUnavailable = errors.New("entitlement: failed to count period usage")

	// ErrConsumeFailed wraps store failures during the trial flag update.
	ErrConsumeFailed = errors.New("entitlement: failed to record trial consumption")

	ErrSubjectIDNotInContext = errors.New("entitlement: subject ID not found in context")
)
