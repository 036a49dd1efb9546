package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/enums"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/types"
)

// ProductionItem is one physical unit being built in the workshop. The serial
// number is immutable once assigned; archiving never frees it.
type ProductionItem struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`

	SerialNumber string `gorm:"column:serial_number;not null;uniqueIndex:idx_production_items_serial"`
	Suffix       int    `gorm:"column:suffix;not null"`

	ItemType  string `gorm:"column:item_type"`
	Tuning    string `gorm:"column:tuning"`
	Frequency string `gorm:"column:frequency"`
	Color     string `gorm:"column:color"`
	Engraving string `gorm:"column:engraving"`

	ExternalLineItemID *string `gorm:"column:external_line_item_id;index"`

	Stage             enums.ItemStage `gorm:"column:stage;type:text;not null;default:'ordered'"`
	StatusChangeDates types.TimeMap   `gorm:"column:status_change_dates;type:jsonb;serializer:json"`

	Archived       bool   `gorm:"column:archived;not null;default:false"`
	ArchivedReason string `gorm:"column:archived_reason"`

	Note string `gorm:"column:note"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Spec assembles the item's specification bag.
func (p ProductionItem) Spec() types.ItemSpec {
	return types.ItemSpec{
		ItemType:  p.ItemType,
		Tuning:    p.Tuning,
		Frequency: p.Frequency,
		Color:     p.Color,
		Engraving: p.Engraving,
	}
}

// ApplySpec overwrites the item's specification fields from the bag.
func (p *ProductionItem) ApplySpec(spec types.ItemSpec) {
	p.ItemType = spec.ItemType
	p.Tuning = spec.Tuning
	p.Frequency = spec.Frequency
	p.Color = spec.Color
	p.Engraving = spec.Engraving
}
