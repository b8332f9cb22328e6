package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rodrigoferraz/autovendas-backend/pkg/db/models"
	"github.com/rodrigoferraz/autovendas-backend/pkg/pagination"
	"gorm.io/gorm"
)

// MarkReadResult reports whether the targeted row existed.
type MarkReadResult struct {
	Found bool
}

type listNotificationsParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

// Repository defines persistence operations for notification rows.
type Repository interface {
	Create(ctx context.Context, rows []models.Notification) error
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, at time.Time) (MarkReadResult, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a notifications repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rows []models.Notification) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", params.UserID)
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if params.Cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			params.Cursor.UpdatedAt, params.Cursor.UpdatedAt, params.Cursor.ID,
		)
	}

	var rows []models.Notification
	err := query.
		Order("created_at DESC, id DESC").
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if params.Limit > 1 && len(rows) == params.Limit {
		rows = rows[:params.Limit-1]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{UpdatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

func (r *repository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, at time.Time) (MarkReadResult, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		Update("read_at", at)
	if result.Error != nil {
		return MarkReadResult{}, result.Error
	}
	return MarkReadResult{Found: result.RowsAffected > 0}, nil
}

func (r *repository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", at)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
