// Package entitlement decides whether a billing subject may consume one unit
// of match-analysis quota, and records that consumption atomically.
//
// The package separates three concerns:
//
//   - Evaluator is a pure decision function over a Subject snapshot, an
//     evaluation instant, and (lazily) the usage count for the active billing
//     window. It never mutates state.
//
//   - Gate is the single entry point allowed to authorize creation of a
//     quota-consuming record. It wraps the Evaluator and performs the one-shot
//     trial consumption as a compare-and-set against the subject store, so at
//     most one of N concurrent callers wins the trial slot.
//
//   - Config carries the plan quota table and trial parameters. It is injected
//     everywhere quotas are needed; quota ceilings are never hardcoded at call
//     sites.
//
// Deny reasons are stable tokens (NO_ACTIVE_PLAN, TRIAL_EXHAUSTED,
// QUOTA_EXCEEDED, NO_SUBSCRIPTION) because callers branch on them. Store and
// infrastructure failures are returned as errors, never mapped to a Deny
// reason, so callers can distinguish "not entitled" from "could not check".
package entitlement
