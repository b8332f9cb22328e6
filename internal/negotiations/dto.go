package negotiations

import (
	"time"

	"github.com/google/uuid"
	"github.com/rodrigoferraz/autovendas-backend/pkg/enums"
	"github.com/rodrigoferraz/autovendas-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// Decision represents the seller's answer to an open offer.
type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionReject  Decision = "reject"
	DecisionCounter Decision = "counter"
)

// ParseDecision converts a request payload value into a Decision.
func ParseDecision(value string) (Decision, bool) {
	switch Decision(value) {
	case DecisionAccept, DecisionReject, DecisionCounter:
		return Decision(value), true
	default:
		return "", false
	}
}

// Caller identifies the authenticated actor invoking an engine operation.
type Caller struct {
	ID   uuid.UUID
	Role enums.UserRole
}

// CreateInput captures the data required to open a negotiation.
type CreateInput struct {
	BuyerID      uuid.UUID
	VehicleID    uuid.UUID
	OfferedPrice decimal.Decimal
	Comment      string
}

// RespondInput captures a seller response on an open negotiation.
type RespondInput struct {
	NegotiationID   uuid.UUID
	SellerID        uuid.UUID
	Decision        Decision
	NegotiatedPrice *decimal.Decimal
	Reason          *string
}

// AddMessageInput captures a free-text message posted to an open thread.
type AddMessageInput struct {
	NegotiationID uuid.UUID
	AuthorID      uuid.UUID
	Content       string
}

// CancelInput captures a buyer-initiated cancellation.
type CancelInput struct {
	NegotiationID uuid.UUID
	BuyerID       uuid.UUID
	Reason        *string
}

// ListFilters describe the inputs supported by the user negotiation list.
type ListFilters struct {
	Status *enums.NegotiationStatus
	Role   string // "buyer", "seller" or empty for both sides
}

// PartySummary exposes the user fields denormalized into negotiation views.
type PartySummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// VehicleSummary exposes the listing fields denormalized into negotiation views.
type VehicleSummary struct {
	ID    uuid.UUID       `json:"id"`
	Make  string          `json:"make"`
	Model string          `json:"model"`
	Year  int             `json:"year"`
	Price decimal.Decimal `json:"price"`
}

// NegotiationSummary exposes the aggregated fields returned in the list view.
// Message bodies are omitted, only the count travels with the summary.
type NegotiationSummary struct {
	ID              uuid.UUID               `json:"id"`
	Status          enums.NegotiationStatus `json:"status"`
	AskingPrice     decimal.Decimal         `json:"asking_price"`
	OfferedPrice    decimal.Decimal         `json:"offered_price"`
	NegotiatedPrice *decimal.Decimal        `json:"negotiated_price,omitempty"`
	MessageCount    int64                   `json:"message_count"`
	Vehicle         VehicleSummary          `json:"vehicle"`
	Buyer           PartySummary            `json:"buyer"`
	Seller          PartySummary            `json:"seller"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// NegotiationList wraps the paginated summaries plus the next page cursor.
type NegotiationList struct {
	Negotiations []NegotiationSummary `json:"negotiations"`
	NextCursor   string               `json:"next_cursor,omitempty"`
}

// MessageView is one entry of the ordered conversation thread.
type MessageView struct {
	ID        uuid.UUID         `json:"id"`
	AuthorID  *uuid.UUID        `json:"author_id,omitempty"`
	Author    *PartySummary     `json:"author,omitempty"`
	Content   string            `json:"content"`
	Kind      enums.MessageKind `json:"kind"`
	CreatedAt time.Time         `json:"created_at"`
}

// NegotiationDetail is the full read model returned by the details endpoint.
type NegotiationDetail struct {
	ID              uuid.UUID               `json:"id"`
	Status          enums.NegotiationStatus `json:"status"`
	AskingPrice     decimal.Decimal         `json:"asking_price"`
	OfferedPrice    decimal.Decimal         `json:"offered_price"`
	NegotiatedPrice *decimal.Decimal        `json:"negotiated_price,omitempty"`
	RejectionReason *string                 `json:"rejection_reason,omitempty"`
	Vehicle         VehicleSummary          `json:"vehicle"`
	Buyer           PartySummary            `json:"buyer"`
	Seller          PartySummary            `json:"seller"`
	Messages        []MessageView           `json:"messages"`
	ClosedAt        *time.Time              `json:"closed_at,omitempty"`
	ExpiresAt       *time.Time              `json:"expires_at,omitempty"`
	PurgeAfter      *time.Time              `json:"purge_after,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// HistoryView is one immutable audit entry of a negotiation.
type HistoryView struct {
	ID        uuid.UUID            `json:"id"`
	Action    enums.HistoryAction  `json:"action"`
	ActorID   *uuid.UUID           `json:"actor_id,omitempty"`
	Actor     *PartySummary        `json:"actor,omitempty"`
	Details   types.HistoryDetails `json:"details"`
	CreatedAt time.Time            `json:"created_at"`
}

// CancelResult pairs the updated negotiation with its purge schedule.
type CancelResult struct {
	Negotiation *NegotiationDetail `json:"negotiation"`
	PurgeAfter  time.Time          `json:"purge_after"`
}
