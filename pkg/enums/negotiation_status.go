package enums

import "fmt"

// NegotiationStatus tracks where a negotiation sits in its lifecycle.
type NegotiationStatus string

const (
	NegotiationStatusOpen         NegotiationStatus = "open"
	NegotiationStatusCounterOffer NegotiationStatus = "counter_offer"
	NegotiationStatusAccepted     NegotiationStatus = "accepted"
	NegotiationStatusRejected     NegotiationStatus = "rejected"
	NegotiationStatusCancelled    NegotiationStatus = "cancelled"
	NegotiationStatusExpired      NegotiationStatus = "expired"
)

var validNegotiationStatuses = []NegotiationStatus{
	NegotiationStatusOpen,
	NegotiationStatusCounterOffer,
	NegotiationStatusAccepted,
	NegotiationStatusRejected,
	NegotiationStatusCancelled,
	NegotiationStatusExpired,
}

// String implements fmt.Stringer.
func (s NegotiationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known NegotiationStatus.
func (s NegotiationStatus) IsValid() bool {
	for _, candidate := range validNegotiationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted from s.
func (s NegotiationStatus) IsTerminal() bool {
	switch s {
	case NegotiationStatusAccepted, NegotiationStatusRejected, NegotiationStatusCancelled, NegotiationStatusExpired:
		return true
	}
	return false
}

// IsOpenForResponses reports whether the thread still accepts messages and responses.
func (s NegotiationStatus) IsOpenForResponses() bool {
	return s == NegotiationStatusOpen || s == NegotiationStatusCounterOffer
}

// ParseNegotiationStatus converts raw input into a NegotiationStatus.
func ParseNegotiationStatus(value string) (NegotiationStatus, error) {
	for _, candidate := range validNegotiationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid negotiation status %q", value)
}
