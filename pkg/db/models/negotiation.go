package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rodrigoferraz/autovendas-backend/pkg/enums"
)

// Negotiation is one offer thread for one vehicle between exactly one buyer
// and one seller. AskingPrice is snapshotted from the vehicle at creation and
// never changes; SellerID is always derived from the vehicle's owner.
type Negotiation struct {
	ID              uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	VehicleID       uuid.UUID               `gorm:"column:vehicle_id;type:uuid;not null;index"`
	BuyerID         uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID        uuid.UUID               `gorm:"column:seller_id;type:uuid;not null;index"`
	AskingPrice     decimal.Decimal         `gorm:"column:asking_price;type:numeric(12,2);not null"`
	OfferedPrice    decimal.Decimal         `gorm:"column:offered_price;type:numeric(12,2);not null"`
	NegotiatedPrice *decimal.Decimal        `gorm:"column:negotiated_price;type:numeric(12,2)"`
	Status          enums.NegotiationStatus `gorm:"type:text;not null;default:'open';index"`
	RejectionReason *string                 `gorm:"column:rejection_reason"`
	ClosedAt        *time.Time              `gorm:"column:closed_at"`
	ExpiresAt       *time.Time              `gorm:"column:expires_at;index"`
	PurgeAfter      *time.Time              `gorm:"column:purge_after;index"`
	Vehicle         *Vehicle                `gorm:"foreignKey:VehicleID"`
	Buyer           *User                   `gorm:"foreignKey:BuyerID"`
	Seller          *User                   `gorm:"foreignKey:SellerID"`
	Messages        []NegotiationMessage    `gorm:"foreignKey:NegotiationID;constraint:OnDelete:CASCADE"`
	History         []NegotiationHistory    `gorm:"foreignKey:NegotiationID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime;index"`
}
