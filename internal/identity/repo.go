package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

// NewStore builds a mapping store bound to the provided DB.
func NewStore(conn *gorm.DB) MappingStore {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) MappingStore {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByExternalID(ctx context.Context, externalLineItemID string) ([]models.ItemMapping, error) {
	var entries []models.ItemMapping
	err := r.db.WithContext(ctx).
		Where("external_line_item_id = ?", externalLineItemID).
		Order("suffix ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) FindMappingBySerial(ctx context.Context, serialNumber string) (*models.ItemMapping, error) {
	var entry models.ItemMapping
	err := r.db.WithContext(ctx).
		Where("serial_number = ?", serialNumber).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) InsertMapping(ctx context.Context, entry *models.ItemMapping) (*models.ItemMapping, bool, error) {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err == nil {
		return entry, false, nil
	}
	if !db.IsUniqueViolation(err, "") {
		return nil, false, err
	}

	// Either the slot is already bound or the serial belongs to another
	// external id. Re-read the slot to tell the two apart.
	existing, findErr := r.findBySlot(ctx, entry.ExternalLineItemID, entry.Suffix)
	if findErr == nil {
		return existing, true, nil
	}
	if errors.Is(findErr, gorm.ErrRecordNotFound) {
		return nil, false, pkgerrors.New(pkgerrors.CodeIdentityConflict,
			fmt.Sprintf("serial %s already bound to a different line item", entry.SerialNumber))
	}
	return nil, false, findErr
}

func (r *repository) findBySlot(ctx context.Context, externalLineItemID string, suffix int) (*models.ItemMapping, error) {
	var entry models.ItemMapping
	err := r.db.WithContext(ctx).
		Where("external_line_item_id = ? AND suffix = ?", externalLineItemID, suffix).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ClaimSuffix(ctx context.Context, orderID uuid.UUID, suffix int) (bool, error) {
	claim := models.OrderSuffix{
		ID:      uuid.New(),
		OrderID: orderID,
		Suffix:  suffix,
	}
	err := r.db.WithContext(ctx).Create(&claim).Error
	if err == nil {
		return true, nil
	}
	if db.IsUniqueViolation(err, "idx_order_suffixes_slot") {
		return false, nil
	}
	return false, err
}

func (r *repository) ConsumedSuffixes(ctx context.Context, orderID uuid.UUID) ([]int, error) {
	var suffixes []int
	err := r.db.WithContext(ctx).
		Model(&models.OrderSuffix{}).
		Where("order_id = ?", orderID).
		Order("suffix ASC").
		Pluck("suffix", &suffixes).Error
	if err != nil {
		return nil, err
	}
	return suffixes, nil
}
