package negotiations

import "github.com/rodrigoferraz/autovendas-backend/pkg/enums"

// Action enumerates the mutating operations applied to a negotiation.
type Action string

const (
	ActionAccept  Action = "accept"
	ActionReject  Action = "reject"
	ActionCounter Action = "counter"
	ActionCancel  Action = "cancel"
	ActionExpire  Action = "expire"
	ActionMessage Action = "message"
)

// transitions is the single source of truth for which actions are valid
// from each status. Terminal statuses have no entries.
var transitions = map[enums.NegotiationStatus]map[Action]bool{
	enums.NegotiationStatusOpen: {
		ActionAccept:  true,
		ActionReject:  true,
		ActionCounter: true,
		ActionCancel:  true,
		ActionExpire:  true,
		ActionMessage: true,
	},
	enums.NegotiationStatusCounterOffer: {
		ActionAccept:  true,
		ActionReject:  true,
		ActionCounter: true,
		ActionCancel:  true,
		ActionExpire:  true,
		ActionMessage: true,
	},
}

// CanTransition reports whether the given action is permitted from the
// current status.
func CanTransition(current enums.NegotiationStatus, action Action) bool {
	allowed, ok := transitions[current]
	if !ok {
		return false
	}
	return allowed[action]
}

func decisionAction(decision Decision) Action {
	switch decision {
	case DecisionAccept:
		return ActionAccept
	case DecisionReject:
		return ActionReject
	default:
		return ActionCounter
	}
}
