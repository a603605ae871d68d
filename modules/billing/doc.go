// Package billing is the HTTP surface for subscriptions: the provider
// webhook plus the self-serve endpoints (checkout, portal, status, upgrade,
// cancel). The webhook path verifies the signature, short-circuits replayed
// event IDs through the deduper, and hands the normalized event to the
// ingestor; everything else delegates to the billing service.
package billing
