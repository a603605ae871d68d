package entitlement

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// plansFile is the on-disk shape of the quota configuration. Plans are keyed
// by tier name so the file reads naturally:
//
//	trial_days: 7
//	trial_matches: 1
//	quotas:
//	  COACH: 4
//	  CLUB: 12
//
// Trial fields are pointers so an absent key falls back to the production
// default while an explicit zero configures a no-trial deployment.
type plansFile struct {
	TrialDays    *int             `yaml:"trial_days"`
	TrialMatches *int64           `yaml:"trial_matches"`
	Quotas       map[string]int64 `yaml:"quotas"`
}

// LoadConfigFile reads the quota configuration from a YAML file. Missing
// trial fields default to the production values; the quota table itself is
// required so a truncated file cannot silently zero all ceilings.
func LoadConfigFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	return parseConfig(raw)
}

func parseConfig(raw []byte) (Config, error) {
	var f plansFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}

	if len(f.Quotas) == 0 {
		return Config{}, errors.Join(ErrInvalidConfig, errors.New("quotas table is required"))
	}

	def := DefaultConfig()
	cfg := Config{
		Quotas:       make(map[Plan]int64, len(f.Quotas)),
		TrialMatches: def.TrialMatches,
		TrialDays:    def.TrialDays,
	}
	for label, quota := range f.Quotas {
		plan, ok := ParsePlan(label)
		if !ok {
			return Config{}, errors.Join(ErrInvalidConfig, fmt.Errorf("unknown plan %q", label))
		}
		cfg.Quotas[plan] = quota
	}

	if f.TrialMatches != nil {
		cfg.TrialMatches = *f.TrialMatches
	}
	if f.TrialDays != nil {
		cfg.TrialDays = *f.TrialDays
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
