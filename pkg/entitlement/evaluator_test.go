package entitlement_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightball/backend/pkg/entitlement"
)

var noUsage = func(entitlement.Window) (int64, error) {
	panic("usage must not be counted on this branch")
}

func fixedUsage(n int64) entitlement.UsageFunc {
	return func(entitlement.Window) (int64, error) { return n, nil }
}

func newEvaluator(t *testing.T) *entitlement.Evaluator {
	t.Helper()
	eval, err := entitlement.NewEvaluator(entitlement.DefaultConfig())
	require.NoError(t, err)
	return eval
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestEvaluate_Superadmin(t *testing.T) {
	t.Parallel()

	eval := newEvaluator(t)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	// Superadmin wins regardless of trial state, plan, or usage.
	subjects := []entitlement.Subject{
		{IsSuperadmin: true},
		{IsSuperadmin: true, Plan: entitlement.PlanCoach, SubscriptionID: "sub_1", TrialMatchUsed: true},
		{IsSuperadmin: true, Plan: entitlement.PlanClub, TrialEndsAt: ptrTime(now.Add(-time.Hour))},
	}

	for _, s := range subjects {
		d, err := eval.Evaluate(s, now, noUsage)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.False(t, d.ConsumesTrial)
	}
}

func TestEvaluate_NoPlan(t *testing.T) {
	t.Parallel()

	eval := newEvaluator(t)
	now := time.Now().UTC()

	d, err := eval.Evaluate(entitlement.Subject{}, now, noUsage)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, entitlement.DenyNoActivePlan, d.Reason)
}

func TestEvaluate_TrialWithCard(t *testing.T) {
	t.Parallel()

	eval := newEvaluator(t)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	trialEnd := now.Add(48 * time.Hour)

	t.Run("trial slot available", func(t *testing.T) {
		t.Parallel()

		s := entitlement.Subject{
			Plan:           entitlement.PlanCoach,
			SubscriptionID: "sub_1",
			TrialEndsAt:    &trialEnd,
		}
		d, err := eval.Evaluate(s, now, noUsage)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.True(t, d.ConsumesTrial)
	})

	t.Run("trial slot exhausted", func(t *testing.T) {
		t.Parallel()

		s := entitlement.Subject{
			Plan:           entitlement.PlanCoach,
			SubscriptionID: "sub_1",
			TrialEndsAt:    &trialEnd,
			TrialMatchUsed: true,
		}
		d, err := eval.Evaluate(s, now, noUsage)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, entitlement.DenyTrialExhausted, d.Reason)
	})

	t.Run("now equal to trial end is expired", func(t *testing.T) {
		t.Parallel()

		s := entitlement.Subject{
			Plan:           entitlement.PlanCoach,
			SubscriptionID: "sub_1",
			TrialEndsAt:    ptrTime(now),
		}
		// Expired trial falls through to the paid branch and counts usage.
		d, err := eval.Evaluate(s, now, fixedUsage(0))
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.False(t, d.ConsumesTrial)
	})
}

func TestEvaluate_PaidPeriod(t *testing.T) {
	t.Parallel()

	eval := newEvaluator(t)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	periodStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	base := entitlement.Subject{
		Plan:               entitlement.PlanCoach,
		SubscriptionID:     "sub_1",
		CurrentPeriodStart: &periodStart,
		CurrentPeriodEnd:   &periodEnd,
	}

	tests := []struct {
		name      string
		plan      entitlement.Plan
		used      int64
		wantAllow bool
	}{
		{name: "coach under ceiling", plan: entitlement.PlanCoach, used: 3, wantAllow: true},
		{name: "coach at ceiling", plan: entitlement.PlanCoach, used: 4, wantAllow: false},
		{name: "coach over ceiling", plan: entitlement.PlanCoach, used: 7, wantAllow: false},
		{name: "club under ceiling", plan: entitlement.PlanClub, used: 11, wantAllow: true},
		{name: "club at ceiling", plan: entitlement.PlanClub, used: 12, wantAllow: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := base
			s.Plan = tt.plan
			d, err := eval.Evaluate(s, now, fixedUsage(tt.used))
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllow, d.Allowed)
			if !tt.wantAllow {
				assert.Equal(t, entitlement.DenyQuotaExceeded, d.Reason)
				assert.Equal(t, tt.used, d.Used)
				require.NotNil(t, d.ResetsAt)
				assert.Equal(t, periodEnd, *d.ResetsAt)
			}
		})
	}
}

func TestEvaluate_PaidPeriodCountsAfterTrialCutoff(t *testing.T) {
	t.Parallel()

	eval := newEvaluator(t)
	now := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	periodStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	trialEnd := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	s := entitlement.Subject{
		Plan:               entitlement.PlanCoach,
		SubscriptionID:     "sub_1",
		TrialEndsAt:        &trialEnd,
		TrialMatchUsed:     true,
		CurrentPeriodStart: &periodStart,
		CurrentPeriodEnd:   &periodEnd,
	}

	var gotWindow entitlement.Window
	_, err := eval.Evaluate(s, now, func(w entitlement.Window) (int64, error) {
		gotWindow = w
		return 0, nil
	})
	require.NoError(t, err)

	// The counting window starts at the trial cutoff, not the cycle start,
	// so the free trial match is never charged against the paid ceiling.
	assert.Equal(t, trialEnd, gotWindow.Start)
	assert.Equal(t, periodEnd, gotWindow.End)
}

func TestEvaluate_CalendarMonthFallback(t *testing.T) {
	t.Parallel()

	eval := newEvaluator(t)
	now := time.Date(2026, 12, 15, 9, 30, 0, 0, time.UTC)

	s := entitlement.Subject{
		Plan:           entitlement.PlanCoach,
		SubscriptionID: "sub_1",
	}

	var gotWindow entitlement.Window
	_, err := eval.Evaluate(s, now, func(w entitlement.Window) (int64, error) {
		gotWindow = w
		return 0, nil
	})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), gotWindow.Start)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), gotWindow.End)
}

func TestEvaluate_TrialWithoutCard(t *testing.T) {
	t.Parallel()

	eval := newEvaluator(t)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("active trial without subscription", func(t *testing.T) {
		t.Parallel()

		s := entitlement.Subject{
			Plan:        entitlement.PlanCoach,
			TrialEndsAt: ptrTime(now.Add(time.Hour)),
		}
		d, err := eval.Evaluate(s, now, noUsage)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.True(t, d.ConsumesTrial)
	})

	t.Run("exhausted trial without subscription", func(t *testing.T) {
		t.Parallel()

		s := entitlement.Subject{
			Plan:           entitlement.PlanCoach,
			TrialEndsAt:    ptrTime(now.Add(time.Hour)),
			TrialMatchUsed: true,
		}
		d, err := eval.Evaluate(s, now, noUsage)
		require.NoError(t, err)
		assert.Equal(t, entitlement.DenyTrialExhausted, d.Reason)
	})

	t.Run("expired trial without subscription", func(t *testing.T) {
		t.Parallel()

		s := entitlement.Subject{
			Plan:        entitlement.PlanCoach,
			TrialEndsAt: ptrTime(now.Add(-time.Hour)),
		}
		d, err := eval.Evaluate(s, now, noUsage)
		require.NoError(t, err)
		assert.Equal(t, entitlement.DenyNoSubscription, d.Reason)
	})
}

func TestEvaluate_UsageErrorIsOperational(t *testing.T) {
	t.Parallel()

	eval := newEvaluator(t)
	now := time.Now().UTC()
	countErr := errors.New("connection reset")

	s := entitlement.Subject{
		Plan:           entitlement.PlanCoach,
		SubscriptionID: "sub_1",
	}
	d, err := eval.Evaluate(s, now, func(entitlement.Window) (int64, error) {
		return 0, countErr
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, entitlement.ErrUsageUnavailable)
	assert.ErrorIs(t, err, countErr)
	assert.False(t, d.Allowed)
	assert.Empty(t, d.Reason, "infrastructure failures must not map to a deny reason")
}

func TestStatus(t *testing.T) {
	t.Parallel()

	eval := newEvaluator(t)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	periodStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("paid subject", func(t *testing.T) {
		t.Parallel()

		s := entitlement.Subject{
			ID:                 uuid.New(),
			Plan:               entitlement.PlanCoach,
			SubscriptionID:     "sub_1",
			CurrentPeriodStart: &periodStart,
			CurrentPeriodEnd:   &periodEnd,
		}
		st, err := eval.Status(s, now, fixedUsage(3))
		require.NoError(t, err)
		assert.Equal(t, entitlement.QuotaStatus{
			Plan:      "COACH",
			Quota:     4,
			Used:      3,
			Remaining: 1,
			ResetsAt:  &periodEnd,
		}, st)
	})

	t.Run("paid subject over ceiling clamps remaining", func(t *testing.T) {
		t.Parallel()

		s := entitlement.Subject{
			Plan:               entitlement.PlanCoach,
			SubscriptionID:     "sub_1",
			CurrentPeriodStart: &periodStart,
			CurrentPeriodEnd:   &periodEnd,
		}
		st, err := eval.Status(s, now, fixedUsage(5))
		require.NoError(t, err)
		assert.Equal(t, int64(0), st.Remaining)
	})

	t.Run("trialing subject", func(t *testing.T) {
		t.Parallel()

		s := entitlement.Subject{
			Plan:           entitlement.PlanCoach,
			SubscriptionID: "sub_1",
			TrialEndsAt:    ptrTime(now.Add(24 * time.Hour)),
		}
		st, err := eval.Status(s, now, noUsage)
		require.NoError(t, err)
		assert.Equal(t, "TRIAL", st.Plan)
		assert.Equal(t, int64(1), st.Quota)
		assert.Equal(t, int64(0), st.Used)
		assert.Equal(t, int64(1), st.Remaining)
		assert.Nil(t, st.ResetsAt)
	})

	t.Run("trialing subject after consumption", func(t *testing.T) {
		t.Parallel()

		s := entitlement.Subject{
			Plan:           entitlement.PlanCoach,
			SubscriptionID: "sub_1",
			TrialEndsAt:    ptrTime(now.Add(24 * time.Hour)),
			TrialMatchUsed: true,
		}
		st, err := eval.Status(s, now, noUsage)
		require.NoError(t, err)
		assert.Equal(t, int64(1), st.Used)
		assert.Equal(t, int64(0), st.Remaining)
	})

	t.Run("no subscription", func(t *testing.T) {
		t.Parallel()

		st, err := eval.Status(entitlement.Subject{Plan: entitlement.PlanCoach}, now, noUsage)
		require.NoError(t, err)
		assert.Equal(t, entitlement.QuotaStatus{Plan: "NO_SUBSCRIPTION"}, st)
	})
}
