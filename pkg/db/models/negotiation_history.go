package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rodrigoferraz/autovendas-backend/pkg/enums"
	"github.com/rodrigoferraz/autovendas-backend/pkg/types"
)

// NegotiationHistory is an append-only audit record of one state-changing
// action. Rows are written in the same transaction as the action itself and
// are never mutated or deleted. ActorID is nil for system actions (expiry).
type NegotiationHistory struct {
	ID            uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	NegotiationID uuid.UUID            `gorm:"column:negotiation_id;type:uuid;not null;index"`
	ActorID       *uuid.UUID           `gorm:"column:actor_id;type:uuid"`
	Action        enums.HistoryAction  `gorm:"type:text;not null"`
	Details       types.HistoryDetails `gorm:"type:jsonb;serializer:json"`
	Actor         *User                `gorm:"foreignKey:ActorID"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime;index"`
}
