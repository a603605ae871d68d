package entitlement_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/insightball/backend/pkg/entitlement"
)

func TestWindow_Contains(t *testing.T) {
	t.Parallel()

	w := entitlement.Window{
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, w.Contains(w.Start), "start is inclusive")
	assert.True(t, w.Contains(w.End.Add(-time.Nanosecond)))
	assert.False(t, w.Contains(w.End), "end is exclusive")
	assert.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
}

func TestCalendarMonth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "mid month",
			now:       time.Date(2026, 6, 17, 13, 45, 2, 0, time.UTC),
			wantStart: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "december rolls into next year",
			now:       time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
			wantStart: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "non-utc instant normalized",
			now:       time.Date(2026, 3, 1, 0, 30, 0, 0, time.FixedZone("CET", 3600)),
			wantStart: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := entitlement.CalendarMonth(tt.now)
			assert.Equal(t, tt.wantStart, w.Start)
			assert.Equal(t, tt.wantEnd, w.End)
		})
	}
}

func TestPaidUsageWindow(t *testing.T) {
	t.Parallel()

	periodStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)

	t.Run("no trial uses full cycle", func(t *testing.T) {
		t.Parallel()

		s := entitlement.Subject{
			CurrentPeriodStart: &periodStart,
			CurrentPeriodEnd:   &periodEnd,
		}
		w := entitlement.PaidUsageWindow(s, now)
		assert.Equal(t, periodStart, w.Start)
		assert.Equal(t, periodEnd, w.End)
	})

	t.Run("trial cutoff inside cycle pushes start forward", func(t *testing.T) {
		t.Parallel()

		trialEnd := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
		s := entitlement.Subject{
			TrialEndsAt:        &trialEnd,
			CurrentPeriodStart: &periodStart,
			CurrentPeriodEnd:   &periodEnd,
		}
		w := entitlement.PaidUsageWindow(s, now)
		assert.Equal(t, trialEnd, w.Start)
	})

	t.Run("trial cutoff before cycle start is ignored", func(t *testing.T) {
		t.Parallel()

		trialEnd := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)
		s := entitlement.Subject{
			TrialEndsAt:        &trialEnd,
			CurrentPeriodStart: &periodStart,
			CurrentPeriodEnd:   &periodEnd,
		}
		w := entitlement.PaidUsageWindow(s, now)
		assert.Equal(t, periodStart, w.Start)
	})
}
