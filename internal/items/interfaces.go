package items

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/enums"
)

// Repository defines persistence operations for production items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	// InsertOrGet creates the item, or returns the stored row when the serial
	// number is already taken. Tolerates concurrent creation races.
	InsertOrGet(ctx context.Context, item *models.ProductionItem) (*models.ProductionItem, bool, error)

	FindByID(ctx context.Context, id uuid.UUID) (*models.ProductionItem, error)
	FindBySerial(ctx context.Context, serialNumber string) (*models.ProductionItem, error)

	// ListByOrder returns every item on an order, archived included, suffix
	// ascending.
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ProductionItem, error)

	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// Service is the workshop-floor surface: stage toggling and manual archive.
// Resync passes must never clobber what happens here.
type Service interface {
	SetStage(ctx context.Context, itemID uuid.UUID, stage enums.ItemStage) error
	ArchiveManual(ctx context.Context, itemID uuid.UUID, note string) error
	Get(ctx context.Context, itemID uuid.UUID) (*models.ProductionItem, error)
}
