package negotiations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rodrigoferraz/autovendas-backend/pkg/db/models"
	"github.com/rodrigoferraz/autovendas-backend/pkg/enums"
	"github.com/rodrigoferraz/autovendas-backend/pkg/pagination"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a negotiations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, negotiation *models.Negotiation) (*models.Negotiation, error) {
	if err := r.db.WithContext(ctx).Create(negotiation).Error; err != nil {
		return nil, err
	}
	return negotiation, nil
}

func (r *repository) CreateMessage(ctx context.Context, message *models.NegotiationMessage) (*models.NegotiationMessage, error) {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

func (r *repository) CreateHistory(ctx context.Context, entry *models.NegotiationHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
	var negotiation models.Negotiation
	err := r.db.WithContext(ctx).
		Preload("Vehicle").
		Preload("Buyer").
		Preload("Seller").
		Where("id = ?", id).
		First(&negotiation).Error
	if err != nil {
		return nil, err
	}
	return &negotiation, nil
}

// FindLean loads the negotiation row without associations.
func (r *repository) FindLean(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
	var negotiation models.Negotiation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&negotiation).Error
	if err != nil {
		return nil, err
	}
	return &negotiation, nil
}

func (r *repository) FindOpenByVehicleAndBuyer(ctx context.Context, vehicleID, buyerID uuid.UUID) (*models.Negotiation, error) {
	var negotiation models.Negotiation
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ? AND buyer_id = ?", vehicleID, buyerID).
		Where("status IN ?", []enums.NegotiationStatus{
			enums.NegotiationStatusOpen,
			enums.NegotiationStatusCounterOffer,
		}).
		First(&negotiation).Error
	if err != nil {
		return nil, err
	}
	return &negotiation, nil
}

// UpdateActive applies updates only while the negotiation is still open or
// countered. The transaction runs at READ COMMITTED, so the status predicate
// is what keeps two concurrent closers from both committing: the loser's
// update matches zero rows and the caller reports the state conflict.
func (r *repository) UpdateActive(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Negotiation{}).
		Where("id = ?", id).
		Where("status IN ?", []enums.NegotiationStatus{
			enums.NegotiationStatusOpen,
			enums.NegotiationStatusCounterOffer,
		}).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repository) TouchUpdatedAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Negotiation{}).
		Where("id = ?", id).
		Update("updated_at", at).Error
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*NegotiationList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Negotiation{}).
		Preload("Vehicle").
		Preload("Buyer").
		Preload("Seller")

	switch filters.Role {
	case "buyer":
		query = query.Where("buyer_id = ?", userID)
	case "seller":
		query = query.Where("seller_id = ?", userID)
	default:
		query = query.Where("buyer_id = ? OR seller_id = ?", userID, userID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"updated_at < ? OR (updated_at = ? AND id < ?)",
			cursor.UpdatedAt, cursor.UpdatedAt, cursor.ID,
		)
	}

	var rows []models.Negotiation
	if err := query.
		Order("updated_at DESC, id DESC").
		Limit(limit + 1).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > limit {
		last := rows[limit-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{UpdatedAt: last.UpdatedAt, ID: last.ID})
		rows = rows[:limit]
	}

	counts, err := r.messageCounts(ctx, rows)
	if err != nil {
		return nil, err
	}

	summaries := make([]NegotiationSummary, 0, len(rows))
	for i := range rows {
		summaries = append(summaries, buildSummary(&rows[i], counts[rows[i].ID]))
	}
	return &NegotiationList{Negotiations: summaries, NextCursor: nextCursor}, nil
}

func (r *repository) messageCounts(ctx context.Context, rows []models.Negotiation) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(rows))
	if len(rows) == 0 {
		return counts, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].ID)
	}

	type countRow struct {
		NegotiationID uuid.UUID
		Total         int64
	}
	var results []countRow
	err := r.db.WithContext(ctx).
		Model(&models.NegotiationMessage{}).
		Select("negotiation_id, COUNT(*) AS total").
		Where("negotiation_id IN ?", ids).
		Group("negotiation_id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	for _, row := range results {
		counts[row.NegotiationID] = row.Total
	}
	return counts, nil
}

func (r *repository) ListMessages(ctx context.Context, negotiationID uuid.UUID) ([]models.NegotiationMessage, error) {
	var messages []models.NegotiationMessage
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("negotiation_id = ?", negotiationID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *repository) ListHistory(ctx context.Context, negotiationID uuid.UUID) ([]models.NegotiationHistory, error) {
	var entries []models.NegotiationHistory
	err := r.db.WithContext(ctx).
		Preload("Actor").
		Where("negotiation_id = ?", negotiationID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) FindExpiredDue(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Negotiation{}).
		Where("expires_at IS NOT NULL AND expires_at <= ?", cutoff).
		Where("status IN ?", []enums.NegotiationStatus{
			enums.NegotiationStatusOpen,
			enums.NegotiationStatusCounterOffer,
		}).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DeletePurgeable hard-deletes cancelled negotiations whose purge schedule
// has lapsed. Messages and history rows go with them via FK cascade.
func (r *repository) DeletePurgeable(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ?", enums.NegotiationStatusCancelled).
		Where("purge_after IS NOT NULL AND purge_after <= ?", cutoff).
		Delete(&models.Negotiation{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func buildSummary(n *models.Negotiation, messageCount int64) NegotiationSummary {
	return NegotiationSummary{
		ID:              n.ID,
		Status:          n.Status,
		AskingPrice:     n.AskingPrice,
		OfferedPrice:    n.OfferedPrice,
		NegotiatedPrice: n.NegotiatedPrice,
		MessageCount:    messageCount,
		Vehicle:         buildVehicleSummary(n.Vehicle),
		Buyer:           buildPartySummary(n.Buyer),
		Seller:          buildPartySummary(n.Seller),
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
	}
}

func buildVehicleSummary(v *models.Vehicle) VehicleSummary {
	if v == nil {
		return VehicleSummary{}
	}
	return VehicleSummary{
		ID:    v.ID,
		Make:  v.Make,
		Model: v.Model,
		Year:  v.Year,
		Price: v.Price,
	}
}

func buildPartySummary(u *models.User) PartySummary {
	if u == nil {
		return PartySummary{}
	}
	return PartySummary{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}
