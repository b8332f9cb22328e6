package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rodrigoferraz/autovendas-backend/pkg/enums"
)

// Vehicle is a marketplace listing. The negotiation engine reads it through
// the catalog snapshot; listing CRUD is handled elsewhere.
type Vehicle struct {
	ID         uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID   uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	Make       string              `gorm:"type:text;not null"`
	Model      string              `gorm:"type:text;not null"`
	Year       int                 `gorm:"not null"`
	Plate      *string             `gorm:"column:plate"`
	Price      decimal.Decimal     `gorm:"type:numeric(12,2);not null"`
	Status     enums.VehicleStatus `gorm:"type:text;not null;default:'available'"`
	Negotiable bool                `gorm:"column:negotiable;not null;default:true"`
	Seller     *User               `gorm:"foreignKey:SellerID"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
