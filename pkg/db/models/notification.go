package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rodrigoferraz/autovendas-backend/pkg/enums"
)

// Notification stores the in-app copy of a negotiation notification. Email
// delivery is best-effort and handled outside the request transaction.
type Notification struct {
	ID            uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	NegotiationID uuid.UUID              `gorm:"column:negotiation_id;type:uuid;not null"`
	Kind          enums.NotificationKind `gorm:"type:text;not null"`
	Title         string                 `gorm:"type:text;not null"`
	Message       string                 `gorm:"type:text;not null"`
	ReadAt        *time.Time             `gorm:"column:read_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
}
