package tenant

import (
	"time"

	"github.com/google/uuid"
)

// Club is the tenant boundary for match data. Solo coaches own a personal
// club whose ID equals their user ID; club-tier accounts are shared by many
// coaches and provisioned through the sales flow.
type Club struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	Personal  bool
	CreatedAt time.Time
}
