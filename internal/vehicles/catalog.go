package vehicles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rodrigoferraz/autovendas-backend/pkg/db/models"
	"github.com/rodrigoferraz/autovendas-backend/pkg/enums"
	pkgerrors "github.com/rodrigoferraz/autovendas-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NegotiableSnapshot carries the vehicle fields a negotiation needs at open time.
type NegotiableSnapshot struct {
	VehicleID  uuid.UUID
	SellerID   uuid.UUID
	Price      decimal.Decimal
	Status     enums.VehicleStatus
	Negotiable bool
}

// Available reports whether the vehicle can accept new negotiations.
func (s NegotiableSnapshot) Available() bool {
	return s.Status == enums.VehicleStatusAvailable
}

// Catalog exposes the vehicle reads consumed by the negotiation engine.
type Catalog interface {
	NegotiableSnapshot(ctx context.Context, vehicleID uuid.UUID) (*NegotiableSnapshot, error)
	FindByID(ctx context.Context, vehicleID uuid.UUID) (*models.Vehicle, error)
}

type catalog struct {
	db *gorm.DB
}

// NewCatalog builds a vehicle catalog bound to the provided DB.
func NewCatalog(db *gorm.DB) Catalog {
	return &catalog{db: db}
}

func (c *catalog) NegotiableSnapshot(ctx context.Context, vehicleID uuid.UUID) (*NegotiableSnapshot, error) {
	var vehicle models.Vehicle
	err := c.db.WithContext(ctx).
		Select("id", "seller_id", "price", "status", "negotiable").
		Where("id = ?", vehicleID).
		First(&vehicle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
	}
	return &NegotiableSnapshot{
		VehicleID:  vehicle.ID,
		SellerID:   vehicle.SellerID,
		Price:      vehicle.Price,
		Status:     vehicle.Status,
		Negotiable: vehicle.Negotiable,
	}, nil
}

func (c *catalog) FindByID(ctx context.Context, vehicleID uuid.UUID) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := c.db.WithContext(ctx).
		Where("id = ?", vehicleID).
		First(&vehicle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
	}
	return &vehicle, nil
}
