package matches

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/insightball/backend/pkg/entitlement"
)

// DenialResponse carries the deny token plus quota metadata for the paywall.
type DenialResponse struct {
	Code     string     `json:"code"`
	Message  string     `json:"message"`
	Quota    int64      `json:"quota,omitempty"`
	Used     int64      `json:"used,omitempty"`
	ResetsAt *time.Time `json:"resets_at,omitempty"`
}

func denialMessage(reason entitlement.DenyReason) string {
	switch reason {
	case entitlement.DenyNoActivePlan:
		return "no active plan assigned to this account"
	case entitlement.DenyTrialExhausted:
		return "the free trial match has already been used"
	case entitlement.DenyQuotaExceeded:
		return "monthly match quota exhausted"
	case entitlement.DenyNoSubscription:
		return "an active subscription is required"
	}
	return "match creation not allowed"
}

// writeDenial maps deny reasons to status codes: accounts with no plan at
// all get 403, everything payable gets 402.
func writeDenial(w http.ResponseWriter, d entitlement.Decision) {
	status := http.StatusPaymentRequired
	if d.Reason == entitlement.DenyNoActivePlan {
		status = http.StatusForbidden
	}
	writeJSON(w, status, DenialResponse{
		Code:     string(d.Reason),
		Message:  denialMessage(d.Reason),
		Quota:    d.Quota,
		Used:     d.Used,
		ResetsAt: d.ResetsAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
