package negotiations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rodrigoferraz/autovendas-backend/pkg/db/models"
	"github.com/rodrigoferraz/autovendas-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository defines persistence operations for negotiation tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, negotiation *models.Negotiation) (*models.Negotiation, error)
	CreateMessage(ctx context.Context, message *models.NegotiationMessage) (*models.NegotiationMessage, error)
	CreateHistory(ctx context.Context, entry *models.NegotiationHistory) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Negotiation, error)
	FindLean(ctx context.Context, id uuid.UUID) (*models.Negotiation, error)
	FindOpenByVehicleAndBuyer(ctx context.Context, vehicleID, buyerID uuid.UUID) (*models.Negotiation, error)
	UpdateActive(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	TouchUpdatedAt(ctx context.Context, id uuid.UUID, at time.Time) error
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*NegotiationList, error)
	ListMessages(ctx context.Context, negotiationID uuid.UUID) ([]models.NegotiationMessage, error)
	ListHistory(ctx context.Context, negotiationID uuid.UUID) ([]models.NegotiationHistory, error)
	FindExpiredDue(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
	DeletePurgeable(ctx context.Context, cutoff time.Time) (int64, error)
}
