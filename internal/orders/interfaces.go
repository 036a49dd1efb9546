package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/enums"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/pagination"
)

// Repository defines persistence operations for mirrored orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	// InsertOrGet creates the order, or returns the stored row when the
	// external id is already mirrored.
	InsertOrGet(ctx context.Context, order *models.Order) (*models.Order, bool, error)

	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)

	// ListActive returns every order not archived or cancelled, items
	// preloaded, oldest first.
	ListActive(ctx context.Context) ([]models.Order, error)

	// ListPage returns one keyset page of non-archived orders, newest
	// first, items preloaded. A nil cursor starts from the top.
	ListPage(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Order, error)

	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error

	// FindEmptyPlaceholders returns placeholder orders with no items.
	FindEmptyPlaceholders(ctx context.Context) ([]models.Order, error)

	// HardDelete removes an order permanently. Placeholder cleanup only.
	HardDelete(ctx context.Context, id uuid.UUID) error
}

// Service defines order-level operations beyond repository reads.
type Service interface {
	SetStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
	Archive(ctx context.Context, orderID uuid.UUID, reason string) error
	CleanupPlaceholders(ctx context.Context) (int, error)
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListActive(ctx context.Context) ([]models.Order, error)
	List(ctx context.Context, params pagination.Params) (*Page, error)
}

// Page is one cursor page of orders. NextCursor is empty on the last page.
type Page struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
