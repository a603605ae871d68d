// Package matches is the HTTP surface for match management. Creation goes
// through the entitlement gate, which is the only authorizer of new
// quota-consuming matches; listing, reads, quota status and deletion are
// ungated. Denials map to 403 for accounts without a plan and 402 for
// exhausted trial or quota, with the deny token and quota metadata in the
// response body.
package matches
