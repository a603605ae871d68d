// Package billing connects the external subscription provider to local
// billing state.
//
// Inbound, the Provider adapter verifies and normalizes webhook payloads into
// a small internal Event set, and the Ingestor applies those events to the
// subject store idempotently. The Ingestor never re-derives entitlement
// decisions; it only records what the provider reported. Outbound, Service
// wraps the provider's checkout, portal, upgrade and cancellation surfaces
// and enforces the no-second-trial rule.
//
// The Ingestor and the entitlement Gate deliberately write disjoint subject
// fields: the Gate owns the trial consumption flag, the Ingestor owns plan,
// subscription identity, activity and billing-cycle bounds.
package billing
