package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rodrigoferraz/autovendas-backend/pkg/enums"
)

// User is the canonical identity entity. Session issuance lives outside this
// service; the engine only reads users for party summaries.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string         `gorm:"type:text;not null;uniqueIndex"`
	Name      string         `gorm:"type:text;not null"`
	Phone     *string        `gorm:"column:phone"`
	Role      enums.UserRole `gorm:"type:text;not null;default:'user'"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
