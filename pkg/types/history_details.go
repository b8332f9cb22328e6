package types

import "github.com/shopspring/decimal"

// VehicleSummary is the denormalized listing snapshot embedded in history
// entries and detail views.
type VehicleSummary struct {
	Make  string          `json:"make"`
	Model string          `json:"model"`
	Year  int             `json:"year"`
	Price decimal.Decimal `json:"price"`
}

// HistoryDetails is the structured snapshot stored with each audit entry.
// Only the fields relevant to the recorded action are populated.
type HistoryDetails struct {
	AskingPrice     *decimal.Decimal `json:"asking_price,omitempty"`
	OfferedPrice    *decimal.Decimal `json:"offered_price,omitempty"`
	NegotiatedPrice *decimal.Decimal `json:"negotiated_price,omitempty"`
	Comment         string           `json:"comment,omitempty"`
	Reason          string           `json:"reason,omitempty"`
	Vehicle         *VehicleSummary  `json:"vehicle,omitempty"`
}
