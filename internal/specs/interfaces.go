package specs

import (
	"context"

	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
)

// Repository defines persistence operations for pinned authoritative specs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBySerial(ctx context.Context, serialNumber string) (*models.AuthoritativeSpec, error)
	// Pin writes the record for a serial number. The first write wins: a
	// later attempt for the same serial returns the original record.
	Pin(ctx context.Context, record *models.AuthoritativeSpec) (*models.AuthoritativeSpec, error)
}

// MappingSnapshotReader exposes the cached specification snapshot written by
// the identity mapper, looked up by serial number.
type MappingSnapshotReader interface {
	FindMappingBySerial(ctx context.Context, serialNumber string) (*models.ItemMapping, error)
}
