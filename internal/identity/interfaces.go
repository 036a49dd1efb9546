package identity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
)

// MappingStore persists identity mapping entries and the per-order suffix
// allocation set. Entries are append-only; nothing here updates or deletes.
type MappingStore interface {
	WithTx(tx *gorm.DB) MappingStore

	// FindByExternalID returns all mapping entries for an external line-item
	// id, ordered by suffix ascending.
	FindByExternalID(ctx context.Context, externalLineItemID string) ([]models.ItemMapping, error)

	FindMappingBySerial(ctx context.Context, serialNumber string) (*models.ItemMapping, error)

	// InsertMapping writes a new entry. If the (external id, suffix) slot is
	// already bound, the existing entry is returned with found=true. If the
	// serial number is bound to a different external id, the insert is
	// refused with a coded identity-conflict error.
	InsertMapping(ctx context.Context, entry *models.ItemMapping) (*models.ItemMapping, bool, error)

	// ClaimSuffix marks a suffix as consumed for an order. Returns false when
	// the suffix was already claimed.
	ClaimSuffix(ctx context.Context, orderID uuid.UUID, suffix int) (bool, error)

	// ConsumedSuffixes returns every suffix ever claimed for an order.
	ConsumedSuffixes(ctx context.Context, orderID uuid.UUID) ([]int, error)
}
