package entitlement_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightball/backend/pkg/entitlement"
)

// memSubjects is an in-memory SubjectStore with real compare-and-set
// semantics so the concurrency tests exercise the same contract as the
// SQL implementation.
type memSubjects struct {
	mu       sync.Mutex
	subjects map[uuid.UUID]*entitlement.Subject
	getErr   error
	casErr   error
}

func newMemSubjects(subjects ...*entitlement.Subject) *memSubjects {
	m := &memSubjects{subjects: make(map[uuid.UUID]*entitlement.Subject)}
	for _, s := range subjects {
		m.subjects[s.ID] = s
	}
	return m
}

func (m *memSubjects) Get(_ context.Context, id uuid.UUID) (*entitlement.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.subjects[id]
	if !ok {
		return nil, entitlement.ErrSubjectNotFound
	}
	snapshot := *s
	return &snapshot, nil
}

func (m *memSubjects) ConsumeTrialMatch(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.casErr != nil {
		return false, m.casErr
	}
	s, ok := m.subjects[id]
	if !ok || s.TrialMatchUsed {
		return false, nil
	}
	s.TrialMatchUsed = true
	return true, nil
}

type memUsage struct {
	count int64
	err   error
}

func (m *memUsage) CountMatches(context.Context, uuid.UUID, time.Time, time.Time) (int64, error) {
	return m.count, m.err
}

func newTestGate(t *testing.T, subjects *memSubjects, usage *memUsage, now time.Time) *entitlement.Gate {
	t.Helper()
	eval, err := entitlement.NewEvaluator(entitlement.DefaultConfig())
	require.NoError(t, err)
	return entitlement.NewGate(eval, subjects, usage,
		entitlement.WithClock(func() time.Time { return now }))
}

func trialSubject(now time.Time) *entitlement.Subject {
	trialEnd := now.Add(72 * time.Hour)
	return &entitlement.Subject{
		ID:             uuid.New(),
		TenantID:       uuid.New(),
		Plan:           entitlement.PlanCoach,
		SubscriptionID: "sub_1",
		TrialEndsAt:    &trialEnd,
	}
}

func TestGate_TryConsume_TrialOneShot(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	subject := trialSubject(now)
	store := newMemSubjects(subject)
	gate := newTestGate(t, store, &memUsage{}, now)

	first, err := gate.TryConsume(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.True(t, first.ConsumesTrial)

	second, err := gate.TryConsume(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.False(t, second.Allowed)
	assert.Equal(t, entitlement.DenyTrialExhausted, second.Reason)
}

func TestGate_TryConsume_ConcurrentTrialSingleWinner(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	subject := trialSubject(now)
	store := newMemSubjects(subject)
	gate := newTestGate(t, store, &memUsage{}, now)

	const callers = 32
	decisions := make([]entitlement.Decision, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			decisions[i], errs[i] = gate.TryConsume(context.Background(), subject.ID)
		}()
	}
	close(start)
	wg.Wait()

	winners := 0
	for i := range callers {
		require.NoError(t, errs[i])
		if decisions[i].Allowed {
			winners++
		} else {
			assert.Equal(t, entitlement.DenyTrialExhausted, decisions[i].Reason)
		}
	}
	assert.Equal(t, 1, winners, "exactly one caller may win the trial slot")

	got, err := store.Get(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.True(t, got.TrialMatchUsed)
}

func TestGate_TryConsume_PaidDoesNotTouchTrialFlag(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	periodStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	subject := &entitlement.Subject{
		ID:                 uuid.New(),
		TenantID:           uuid.New(),
		Plan:               entitlement.PlanCoach,
		SubscriptionID:     "sub_1",
		CurrentPeriodStart: &periodStart,
		CurrentPeriodEnd:   &periodEnd,
	}
	store := newMemSubjects(subject)
	gate := newTestGate(t, store, &memUsage{count: 2}, now)

	d, err := gate.TryConsume(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.False(t, d.ConsumesTrial)

	got, err := store.Get(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.False(t, got.TrialMatchUsed)
}

func TestGate_TryConsume_QuotaExceeded(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	periodStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	subject := &entitlement.Subject{
		ID:                 uuid.New(),
		TenantID:           uuid.New(),
		Plan:               entitlement.PlanCoach,
		SubscriptionID:     "sub_1",
		CurrentPeriodStart: &periodStart,
		CurrentPeriodEnd:   &periodEnd,
	}
	store := newMemSubjects(subject)
	gate := newTestGate(t, store, &memUsage{count: 4}, now)

	d, err := gate.TryConsume(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, entitlement.DenyQuotaExceeded, d.Reason)
	assert.Equal(t, int64(4), d.Quota)
	assert.Equal(t, int64(4), d.Used)
	require.NotNil(t, d.ResetsAt)
	assert.Equal(t, periodEnd, *d.ResetsAt)
}

func TestGate_TryConsume_StoreFailures(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("unknown subject", func(t *testing.T) {
		t.Parallel()

		gate := newTestGate(t, newMemSubjects(), &memUsage{}, now)
		_, err := gate.TryConsume(context.Background(), uuid.New())
		assert.ErrorIs(t, err, entitlement.ErrSubjectNotFound)
	})

	t.Run("counter failure propagates", func(t *testing.T) {
		t.Parallel()

		subject := &entitlement.Subject{
			ID:             uuid.New(),
			Plan:           entitlement.PlanCoach,
			SubscriptionID: "sub_1",
		}
		gate := newTestGate(t, newMemSubjects(subject), &memUsage{err: errors.New("timeout")}, now)
		_, err := gate.TryConsume(context.Background(), subject.ID)
		assert.ErrorIs(t, err, entitlement.ErrUsageUnavailable)
	})

	t.Run("trial consumption failure makes no state change", func(t *testing.T) {
		t.Parallel()

		subject := trialSubject(now)
		store := newMemSubjects(subject)
		store.casErr = errors.New("connection lost")
		gate := newTestGate(t, store, &memUsage{}, now)

		_, err := gate.TryConsume(context.Background(), subject.ID)
		assert.ErrorIs(t, err, entitlement.ErrConsumeFailed)

		store.casErr = nil
		got, err := store.Get(context.Background(), subject.ID)
		require.NoError(t, err)
		assert.False(t, got.TrialMatchUsed)
	})
}

func TestGate_Status_DoesNotConsume(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	subject := trialSubject(now)
	store := newMemSubjects(subject)
	gate := newTestGate(t, store, &memUsage{}, now)

	for range 3 {
		st, err := gate.Status(context.Background(), subject.ID)
		require.NoError(t, err)
		assert.Equal(t, "TRIAL", st.Plan)
		assert.Equal(t, int64(1), st.Remaining)
	}

	got, err := store.Get(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.False(t, got.TrialMatchUsed)
}

func TestGate_ExampleScenario(t *testing.T) {
	t.Parallel()

	// COACH subject with a January cycle and three matches already analyzed:
	// status shows 3/4, the fourth consume succeeds, the fifth is refused.
	now := time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
	periodStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	subject := &entitlement.Subject{
		ID:                 uuid.New(),
		TenantID:           uuid.New(),
		Plan:               entitlement.PlanCoach,
		SubscriptionID:     "sub_1",
		CurrentPeriodStart: &periodStart,
		CurrentPeriodEnd:   &periodEnd,
	}
	store := newMemSubjects(subject)
	usage := &memUsage{count: 3}
	gate := newTestGate(t, store, usage, now)

	st, err := gate.Status(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.QuotaStatus{
		Plan:      "COACH",
		Quota:     4,
		Used:      3,
		Remaining: 1,
		ResetsAt:  &periodEnd,
	}, st)

	d, err := gate.TryConsume(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	usage.count = 4
	d, err = gate.TryConsume(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.DenyQuotaExceeded, d.Reason)
}
