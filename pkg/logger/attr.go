package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// SubjectID records the acting user's identifier under the key "subject_id".
// If id is nil, it returns an empty Attr.
func SubjectID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("subject_id", id)
}

// ClubID records the owning club's identifier under the key "club_id".
// If id is nil, it returns an empty Attr.
func ClubID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("club_id", id)
}

// MatchID records a match identifier under the key "match_id".
// If id is nil, it returns an empty Attr.
func MatchID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("match_id", id)
}

// Plan records the subscription tier under the key "plan".
func Plan(plan string) slog.Attr {
	return slog.String("plan", plan)
}

// EventType records a billing event type under the key "event_type".
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// EventID records a billing event identifier under the key "event_id".
func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

// RequestID records the request identifier under the key "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}
