package specs

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an authoritative-spec repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBySerial(ctx context.Context, serialNumber string) (*models.AuthoritativeSpec, error) {
	var record models.AuthoritativeSpec
	err := r.db.WithContext(ctx).
		Where("serial_number = ?", serialNumber).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) Pin(ctx context.Context, record *models.AuthoritativeSpec) (*models.AuthoritativeSpec, error) {
	err := r.db.WithContext(ctx).Create(record).Error
	if err == nil {
		return record, nil
	}
	if !db.IsUniqueViolation(err, "idx_authoritative_specs_serial") {
		return nil, err
	}

	// A pin already exists for this serial; the frozen record wins.
	existing, findErr := r.FindBySerial(ctx, record.SerialNumber)
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, findErr
	}
	return existing, nil
}
