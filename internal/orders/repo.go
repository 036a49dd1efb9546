package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/enums"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/pagination"
)

// PlaceholderPrefix marks orders created by hand before the platform assigned
// a number. They are the only orders ever hard-deleted.
const PlaceholderPrefix = "TMP-"

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) InsertOrGet(ctx context.Context, order *models.Order) (*models.Order, bool, error) {
	err := r.db.WithContext(ctx).Create(order).Error
	if err == nil {
		return order, false, nil
	}
	if !db.IsUniqueViolation(err, "") {
		return nil, false, err
	}

	existing, findErr := r.FindByExternalID(ctx, order.ExternalID)
	if findErr == nil {
		return existing, true, nil
	}
	if errors.Is(findErr, gorm.ErrRecordNotFound) {
		// Number collision rather than external id; surface the original error.
		return nil, false, err
	}
	return nil, false, findErr
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByExternalID(ctx context.Context, externalID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("external_id = ?", externalID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status NOT IN ?", []enums.OrderStatus{
			enums.OrderStatusArchived,
			enums.OrderStatusCancelled,
		}).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListPage(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	q := r.db.WithContext(ctx).
		Preload("Items").
		Where("status NOT IN ?", []enums.OrderStatus{
			enums.OrderStatusArchived,
			enums.OrderStatusCancelled,
		})
	if cursor != nil {
		q = q.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	var orders []models.Order
	err := q.Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindEmptyPlaceholders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("order_number LIKE ?", PlaceholderPrefix+"%").
		Where("NOT EXISTS (SELECT 1 FROM production_items WHERE production_items.order_id = orders.id)").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Order{}).Error
}
