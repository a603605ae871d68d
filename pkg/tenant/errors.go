package tenant

import "errors"

var (
	ErrClubNotFound     = errors.New("tenant.errors.club_not_found")
	ErrProvisionFailed  = errors.New("tenant.errors.provision_failed")
	ErrNoClubInContext  = errors.New("tenant.errors.no_club_in_context")
	ErrNotAuthenticated = errors.New("tenant.errors.not_authenticated")
)
