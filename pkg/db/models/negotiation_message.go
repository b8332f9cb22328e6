package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rodrigoferraz/autovendas-backend/pkg/enums"
)

// NegotiationMessage is one immutable entry in a negotiation's conversation
// thread. AuthorID is nil for system-authored status messages.
type NegotiationMessage struct {
	ID            uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	NegotiationID uuid.UUID         `gorm:"column:negotiation_id;type:uuid;not null;index"`
	AuthorID      *uuid.UUID        `gorm:"column:author_id;type:uuid"`
	Content       string            `gorm:"type:text;not null"`
	Kind          enums.MessageKind `gorm:"type:text;not null;default:'text'"`
	Author        *User             `gorm:"foreignKey:AuthorID"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime;index"`
}
