package entitlement

import "time"

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// BillingWindow returns the subject's active billing cycle. Cycles are
// populated from provider events; when either bound is missing the current
// calendar month is used as a fallback.
func BillingWindow(s Subject, now time.Time) Window {
	if s.CurrentPeriodStart != nil && s.CurrentPeriodEnd != nil {
		return Window{Start: *s.CurrentPeriodStart, End: *s.CurrentPeriodEnd}
	}
	return CalendarMonth(now)
}

// CalendarMonth returns [first of month, first of next month) in UTC.
func CalendarMonth(now time.Time) Window {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// PaidUsageWindow returns the interval whose matches count against the paid
// ceiling. The start is pushed forward to the trial cutoff so the single free
// trial match is never charged against the first paid period; the end stays
// the billing cycle boundary, which is also the quota reset instant.
func PaidUsageWindow(s Subject, now time.Time) Window {
	w := BillingWindow(s, now)
	cutoff := w.Start
	if s.TrialEndsAt != nil {
		cutoff = *s.TrialEndsAt
	}
	if cutoff.After(w.Start) {
		w.Start = cutoff
	}
	return w
}
