package entitlement

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Plan identifies a subscription tier. The zero value means "no plan".
type Plan string

const (
	PlanCoach Plan = "COACH"
	PlanClub  Plan = "CLUB"
)

// ParsePlan normalizes a provider-supplied plan label.
// Returns false for anything that is not a known tier.
func ParsePlan(s string) (Plan, bool) {
	switch Plan(strings.ToUpper(strings.TrimSpace(s))) {
	case PlanCoach:
		return PlanCoach, true
	case PlanClub:
		return PlanClub, true
	}
	return "", false
}

// Valid reports whether p is a known plan tier.
func (p Plan) Valid() bool {
	return p == PlanCoach || p == PlanClub
}

// Config is the injected quota/trial configuration. It is the single source
// of truth for plan ceilings; call sites must never carry their own literals.
type Config struct {
	// Quotas maps a plan to the number of matches allowed per billing cycle.
	Quotas map[Plan]int64 `yaml:"quotas"`

	// TrialMatches is the number of free matches during the trial window.
	TrialMatches int64 `yaml:"trial_matches"`

	// TrialDays is the length of the self-serve trial granted at checkout.
	// Only COACH checkouts are eligible; CLUB goes through a quote flow.
	TrialDays int `yaml:"trial_days"`
}

// DefaultConfig returns the production quota table.
func DefaultConfig() Config {
	return Config{
		Quotas: map[Plan]int64{
			PlanCoach: 4,
			PlanClub:  12,
		},
		TrialMatches: 1,
		TrialDays:    7,
	}
}

// Validate ensures the configuration is internally consistent.
func (c Config) Validate() error {
	if len(c.Quotas) == 0 {
		return ErrInvalidConfig
	}
	for plan, quota := range c.Quotas {
		if !plan.Valid() {
			return errors.Join(ErrInvalidConfig, fmt.Errorf("unknown plan %q", plan))
		}
		if quota < 0 {
			return errors.Join(ErrInvalidConfig, fmt.Errorf("plan %s has negative quota: %d", plan, quota))
		}
	}
	if c.TrialMatches < 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("negative trial matches: %d", c.TrialMatches))
	}
	if c.TrialDays < 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("negative trial days: %d", c.TrialDays))
	}
	return nil
}

// QuotaFor returns the per-cycle ceiling for a plan. Unknown plans fall back
// to the COACH ceiling, matching the most conservative paid tier.
func (c Config) QuotaFor(p Plan) int64 {
	if quota, ok := c.Quotas[p]; ok {
		return quota
	}
	return c.Quotas[PlanCoach]
}

// TrialEndsAt computes the end of a trial started at the given instant.
func (c Config) TrialEndsAt(startedAt time.Time) time.Time {
	return startedAt.AddDate(0, 0, c.TrialDays).UTC()
}
