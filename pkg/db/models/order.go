package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/enums"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/types"
)

// Order mirrors one purchase transaction on the external platform.
// ExternalID and OrderNumber are each unique among non-deleted orders.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string            `gorm:"column:order_number;not null;uniqueIndex:idx_orders_number"`
	ExternalID  string            `gorm:"column:external_id;uniqueIndex:idx_orders_external_id"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'ordered'"`

	CustomerName    string `gorm:"column:customer_name"`
	CustomerEmail   string `gorm:"column:customer_email"`
	ShippingCountry string `gorm:"column:shipping_country"`
	Note            string `gorm:"column:note"`

	Total    decimal.Decimal `gorm:"column:total;type:numeric(12,2)"`
	Currency string          `gorm:"column:currency;not null;default:'EUR'"`

	TrackingNumber  string `gorm:"column:tracking_number"`
	TrackingCarrier string `gorm:"column:tracking_carrier"`
	TrackingURL     string `gorm:"column:tracking_url"`

	StatusChangeDates types.TimeMap `gorm:"column:status_change_dates;type:jsonb;serializer:json"`
	ArchivedReason    string        `gorm:"column:archived_reason"`

	// PlacedAt is when the platform created the order, as opposed to
	// CreatedAt, which is when this system first observed it.
	PlacedAt time.Time `gorm:"column:placed_at"`

	Items []ProductionItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
