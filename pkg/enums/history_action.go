package enums

import "fmt"

// HistoryAction labels one audit entry in a negotiation's history.
type HistoryAction string

const (
	HistoryActionCreated         HistoryAction = "created"
	HistoryActionOffer           HistoryAction = "offer"
	HistoryActionResponseAccept  HistoryAction = "response_accept"
	HistoryActionResponseReject  HistoryAction = "response_reject"
	HistoryActionResponseCounter HistoryAction = "response_counter"
	HistoryActionCancelled       HistoryAction = "cancelled"
)

var validHistoryActions = []HistoryAction{
	HistoryActionCreated,
	HistoryActionOffer,
	HistoryActionResponseAccept,
	HistoryActionResponseReject,
	HistoryActionResponseCounter,
	HistoryActionCancelled,
}

// String implements fmt.Stringer.
func (a HistoryAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known HistoryAction.
func (a HistoryAction) IsValid() bool {
	for _, candidate := range validHistoryActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseHistoryAction converts raw input into a HistoryAction.
func ParseHistoryAction(value string) (HistoryAction, error) {
	for _, candidate := range validHistoryActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid history action %q", value)
}
