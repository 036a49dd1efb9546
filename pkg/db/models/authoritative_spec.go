package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthoritativeSpec pins the specification for a serial number once the item
// enters production. When present it always wins over freshly extracted specs.
type AuthoritativeSpec struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SerialNumber string    `gorm:"column:serial_number;not null;uniqueIndex:idx_authoritative_specs_serial"`

	ItemType  string `gorm:"column:item_type"`
	Tuning    string `gorm:"column:tuning"`
	Frequency string `gorm:"column:frequency"`
	Color     string `gorm:"column:color"`

	PinnedAt  time.Time `gorm:"column:pinned_at;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
