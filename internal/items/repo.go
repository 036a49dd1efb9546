package items

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a production-item repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) InsertOrGet(ctx context.Context, item *models.ProductionItem) (*models.ProductionItem, bool, error) {
	err := r.db.WithContext(ctx).Create(item).Error
	if err == nil {
		return item, false, nil
	}
	if !db.IsUniqueViolation(err, "idx_production_items_serial") {
		return nil, false, err
	}

	// A concurrent writer landed the same serial first; treat the row as
	// already created.
	existing, findErr := r.FindBySerial(ctx, item.SerialNumber)
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
		return nil, false, findErr
	}
	return existing, true, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductionItem, error) {
	var item models.ProductionItem
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindBySerial(ctx context.Context, serialNumber string) (*models.ProductionItem, error) {
	var item models.ProductionItem
	err := r.db.WithContext(ctx).
		Where("serial_number = ?", serialNumber).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ProductionItem, error) {
	var items []models.ProductionItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("suffix ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductionItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}
