package identity

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
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/types"
)

func setupIdentityTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS item_mappings (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  order_number TEXT NOT NULL,
  external_line_item_id TEXT NOT NULL,
  suffix INTEGER NOT NULL,
  serial_number TEXT NOT NULL,
  cached_title TEXT,
  cached_spec TEXT,
  created_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_item_mappings_slot
  ON item_mappings (external_line_item_id, suffix);
CREATE UNIQUE INDEX IF NOT EXISTS idx_item_mappings_serial
  ON item_mappings (serial_number);
CREATE TABLE IF NOT EXISTS order_suffixes (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  suffix INTEGER NOT NULL,
  created_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_order_suffixes_slot
  ON order_suffixes (order_id, suffix);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func newTestMapper(t *testing.T, db *gorm.DB) *Mapper {
	t.Helper()
	mapper, err := NewMapper(NewStore(db), logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return mapper
}

func uniqueOrderNumber() string {
	return fmt.Sprintf("SW-%s", uuid.NewString()[:8])
}

func TestResolveSerialsAllocatesSequentially(t *testing.T) {
	db := setupIdentityTestDB(t)
	mapper := newTestMapper(t, db)

	orderNumber := uniqueOrderNumber()
	input := ResolveInput{
		OrderID:            uuid.New(),
		OrderNumber:        orderNumber,
		ExternalLineItemID: uuid.NewString(),
		DesiredCount:       2,
		Title:              "Alpha C4",
		CachedSpec:         types.ItemSpec{ItemType: "Alpha", Tuning: "C4"},
	}

	serials, err := mapper.ResolveSerials(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, []string{orderNumber + "-1", orderNumber + "-2"}, serials)
}

func TestResolveSerialsIsStableAcrossRuns(t *testing.T) {
	db := setupIdentityTestDB(t)
	mapper := newTestMapper(t, db)

	input := ResolveInput{
		OrderID:            uuid.New(),
		OrderNumber:        uniqueOrderNumber(),
		ExternalLineItemID: uuid.NewString(),
		DesiredCount:       2,
		Title:              "Orion D3",
	}

	first, err := mapper.ResolveSerials(context.Background(), input)
	require.NoError(t, err)
	second, err := mapper.ResolveSerials(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveSerialsExtendsWhenQuantityGrows(t *testing.T) {
	db := setupIdentityTestDB(t)
	mapper := newTestMapper(t, db)

	input := ResolveInput{
		OrderID:            uuid.New(),
		OrderNumber:        uniqueOrderNumber(),
		ExternalLineItemID: uuid.NewString(),
		DesiredCount:       1,
	}

	first, err := mapper.ResolveSerials(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, first, 1)

	input.DesiredCount = 3
	grown, err := mapper.ResolveSerials(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, grown, 3)
	assert.Equal(t, first[0], grown[0])
}

func TestResolveSerialsNeverShrinks(t *testing.T) {
	db := setupIdentityTestDB(t)
	mapper := newTestMapper(t, db)

	input := ResolveInput{
		OrderID:            uuid.New(),
		OrderNumber:        uniqueOrderNumber(),
		ExternalLineItemID: uuid.NewString(),
		DesiredCount:       2,
	}

	first, err := mapper.ResolveSerials(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, first, 2)

	// Existing bindings are returned verbatim even when the live quantity
	// drops below the mapped count.
	input.DesiredCount = 1
	again, err := mapper.ResolveSerials(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestSuffixesNeverRecycled(t *testing.T) {
	db := setupIdentityTestDB(t)
	mapper := newTestMapper(t, db)
	store := NewStore(db)
	ctx := context.Background()

	orderID := uuid.New()
	orderNumber := uniqueOrderNumber()

	first, err := mapper.ResolveSerials(ctx, ResolveInput{
		OrderID:            orderID,
		OrderNumber:        orderNumber,
		ExternalLineItemID: uuid.NewString(),
		DesiredCount:       2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{orderNumber + "-1", orderNumber + "-2"}, first)

	// A second line item on the same order continues from the next free
	// suffix. Nothing ever returns 1 or 2 to the pool.
	second, err := mapper.ResolveSerials(ctx, ResolveInput{
		OrderID:            orderID,
		OrderNumber:        orderNumber,
		ExternalLineItemID: uuid.NewString(),
		DesiredCount:       1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{orderNumber + "-3"}, second)

	consumed, err := store.ConsumedSuffixes(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, consumed)
}

func TestResolveSerialsSkipsClaimedSuffixes(t *testing.T) {
	db := setupIdentityTestDB(t)
	mapper := newTestMapper(t, db)
	store := NewStore(db)
	ctx := context.Background()

	orderID := uuid.New()
	orderNumber := uniqueOrderNumber()

	// Suffix 1 was consumed by an earlier run whose mapping write never
	// landed; allocation must skip past it, not reuse it.
	claimed, err := store.ClaimSuffix(ctx, orderID, 1)
	require.NoError(t, err)
	require.True(t, claimed)

	serials, err := mapper.ResolveSerials(ctx, ResolveInput{
		OrderID:            orderID,
		OrderNumber:        orderNumber,
		ExternalLineItemID: uuid.NewString(),
		DesiredCount:       1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{orderNumber + "-2"}, serials)
}

func TestResolveSerialsValidation(t *testing.T) {
	db := setupIdentityTestDB(t)
	mapper := newTestMapper(t, db)

	_, err := mapper.ResolveSerials(context.Background(), ResolveInput{OrderNumber: "SW-1"})
	assert.Error(t, err)

	_, err = mapper.ResolveSerials(context.Background(), ResolveInput{ExternalLineItemID: "x"})
	assert.Error(t, err)
}

func TestInsertMappingRefusesSerialRebind(t *testing.T) {
	db := setupIdentityTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	orderID := uuid.New()
	orderNumber := uniqueOrderNumber()
	serial := orderNumber + "-1"

	_, _, err := store.InsertMapping(ctx, &models.ItemMapping{
		ID:                 uuid.New(),
		OrderID:            orderID,
		OrderNumber:        orderNumber,
		ExternalLineItemID: "line-a-" + orderNumber,
		Suffix:             1,
		SerialNumber:       serial,
	})
	require.NoError(t, err)

	// A different external id trying to take the same serial is refused.
	_, _, err = store.InsertMapping(ctx, &models.ItemMapping{
		ID:                 uuid.New(),
		OrderID:            orderID,
		OrderNumber:        orderNumber,
		ExternalLineItemID: "line-b-" + orderNumber,
		Suffix:             1,
		SerialNumber:       serial,
	})
	require.Error(t, err)

	// The original binding is untouched.
	entry, err := store.FindMappingBySerial(ctx, serial)
	require.NoError(t, err)
	assert.Equal(t, "line-a-"+orderNumber, entry.ExternalLineItemID)
}

func TestInsertMappingReturnsExistingSlot(t *testing.T) {
	db := setupIdentityTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	orderNumber := uniqueOrderNumber()
	lineID := uuid.NewString()

	first := &models.ItemMapping{
		ID:                 uuid.New(),
		OrderID:            uuid.New(),
		OrderNumber:        orderNumber,
		ExternalLineItemID: lineID,
		Suffix:             1,
		SerialNumber:       orderNumber + "-1",
	}
	_, _, err := store.InsertMapping(ctx, first)
	require.NoError(t, err)

	// Retrying the same slot returns the stored entry instead of erroring.
	stored, found, err := store.InsertMapping(ctx, &models.ItemMapping{
		ID:                 uuid.New(),
		OrderID:            first.OrderID,
		OrderNumber:        orderNumber,
		ExternalLineItemID: lineID,
		Suffix:             1,
		SerialNumber:       orderNumber + "-1",
	})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, first.ID, stored.ID)
}
