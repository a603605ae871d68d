// Package auth issues and verifies the bearer tokens the API accepts.
// Tokens are HS256 JWTs carrying the user ID as the subject claim; the
// middleware translates a valid token into the request identity the club
// resolver and the entitlement gate read from the context.
package auth
