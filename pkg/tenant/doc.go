// Package tenant models the club that owns matches and usage counters.
//
// Every piece of match data belongs to a club, never directly to a user.
// Club accounts are provisioned explicitly; solo coaches instead get a
// personal club created lazily on first use, with the club ID equal to the
// coach's user ID. That convention keeps a single ownership model while
// letting solo users skip any setup step.
//
// The Middleware resolves the authenticated subject's club on each request
// and stores it in the context for handlers downstream.
package tenant
