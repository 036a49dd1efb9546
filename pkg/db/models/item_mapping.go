package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/types"
)

// ItemMapping binds one (external line-item id, suffix) slot to exactly one
// serial number. Entries are append-only: a conflicting rebind is refused by
// the identity mapper, never overwritten.
type ItemMapping struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	OrderNumber string    `gorm:"column:order_number;not null"`

	ExternalLineItemID string `gorm:"column:external_line_item_id;not null;index;uniqueIndex:idx_item_mappings_slot,priority:1"`
	Suffix             int    `gorm:"column:suffix;not null;uniqueIndex:idx_item_mappings_slot,priority:2"`
	SerialNumber       string `gorm:"column:serial_number;not null;uniqueIndex:idx_item_mappings_serial"`

	CachedTitle string         `gorm:"column:cached_title"`
	CachedSpec  types.ItemSpec `gorm:"column:cached_spec;type:jsonb;serializer:json"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// OrderSuffix records one consumed suffix integer for an order. The set grows
// monotonically; archiving an item never returns its suffix.
type OrderSuffix struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_order_suffixes_slot,priority:1"`
	Suffix  int       `gorm:"column:suffix;not null;uniqueIndex:idx_order_suffixes_slot,priority:2"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
