package items

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/enums"
)

func setupItemsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS production_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  serial_number TEXT NOT NULL,
  suffix INTEGER NOT NULL,
  item_type TEXT,
  tuning TEXT,
  frequency TEXT,
  color TEXT,
  engraving TEXT,
  external_line_item_id TEXT,
  stage TEXT NOT NULL DEFAULT 'ordered',
  status_change_dates TEXT,
  archived INTEGER NOT NULL DEFAULT 0,
  archived_reason TEXT,
  note TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_production_items_serial
  ON production_items (serial_number);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func TestInsertOrGetBySerial(t *testing.T) {
	db := setupItemsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	serial := fmt.Sprintf("SW-%s-1", uuid.NewString()[:8])
	orderID := uuid.New()

	first, existed, err := repo.InsertOrGet(ctx, &models.ProductionItem{
		ID:           uuid.New(),
		OrderID:      orderID,
		SerialNumber: serial,
		Suffix:       1,
		ItemType:     "Alpha",
		Stage:        enums.ItemStageOrdered,
	})
	require.NoError(t, err)
	assert.False(t, existed)

	// A retried write for the same serial falls back to the stored row.
	stored, existed, err := repo.InsertOrGet(ctx, &models.ProductionItem{
		ID:           uuid.New(),
		OrderID:      orderID,
		SerialNumber: serial,
		Suffix:       1,
		ItemType:     "Orion",
		Stage:        enums.ItemStageOrdered,
	})
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "Alpha", stored.ItemType)
}

func TestListByOrderSuffixAscending(t *testing.T) {
	db := setupItemsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	prefix := fmt.Sprintf("SW-%s", uuid.NewString()[:8])
	for _, suffix := range []int{3, 1, 2} {
		_, _, err := repo.InsertOrGet(ctx, &models.ProductionItem{
			ID:           uuid.New(),
			OrderID:      orderID,
			SerialNumber: fmt.Sprintf("%s-%d", prefix, suffix),
			Suffix:       suffix,
			Stage:        enums.ItemStageOrdered,
		})
		require.NoError(t, err)
	}

	items, err := repo.ListByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []int{items[0].Suffix, items[1].Suffix, items[2].Suffix}, []int{1, 2, 3})
}
