package items

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/internal/specs"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/enums"
	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/types"
)

type passTxRunner struct{}

func (passTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubItemRepo struct {
	items   map[uuid.UUID]*models.ProductionItem
	updates map[uuid.UUID]map[string]any
}

func newStubItemRepo() *stubItemRepo {
	return &stubItemRepo{
		items:   map[uuid.UUID]*models.ProductionItem{},
		updates: map[uuid.UUID]map[string]any{},
	}
}

func (s *stubItemRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubItemRepo) InsertOrGet(_ context.Context, item *models.ProductionItem) (*models.ProductionItem, bool, error) {
	for _, existing := range s.items {
		if existing.SerialNumber == item.SerialNumber {
			return existing, true, nil
		}
	}
	s.items[item.ID] = item
	return item, false, nil
}

func (s *stubItemRepo) FindByID(_ context.Context, id uuid.UUID) (*models.ProductionItem, error) {
	if item, ok := s.items[id]; ok {
		return item, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubItemRepo) FindBySerial(_ context.Context, serial string) (*models.ProductionItem, error) {
	for _, item := range s.items {
		if item.SerialNumber == serial {
			return item, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubItemRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]models.ProductionItem, error) {
	var out []models.ProductionItem
	for _, item := range s.items {
		if item.OrderID == orderID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *stubItemRepo) Update(_ context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates[id] = updates
	if item, ok := s.items[id]; ok {
		if stage, ok := updates["stage"].(enums.ItemStage); ok {
			item.Stage = stage
		}
		if archived, ok := updates["archived"].(bool); ok {
			item.Archived = archived
		}
		if reason, ok := updates["archived_reason"].(string); ok {
			item.ArchivedReason = reason
		}
	}
	return nil
}

type stubPinRepo struct {
	pinned map[string]*models.AuthoritativeSpec
}

func (s *stubPinRepo) WithTx(tx *gorm.DB) specs.Repository { return s }

func (s *stubPinRepo) FindBySerial(_ context.Context, serial string) (*models.AuthoritativeSpec, error) {
	if record, ok := s.pinned[serial]; ok {
		return record, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPinRepo) Pin(_ context.Context, record *models.AuthoritativeSpec) (*models.AuthoritativeSpec, error) {
	if s.pinned == nil {
		s.pinned = map[string]*models.AuthoritativeSpec{}
	}
	if existing, ok := s.pinned[record.SerialNumber]; ok {
		return existing, nil
	}
	s.pinned[record.SerialNumber] = record
	return record, nil
}

func newTestItemService(t *testing.T, repo Repository, pins *stubPinRepo) Service {
	t.Helper()
	svc, err := NewService(repo, pins, passTxRunner{}, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return svc
}

func newWorkItem(serial string) *models.ProductionItem {
	return &models.ProductionItem{
		ID:           uuid.New(),
		OrderID:      uuid.New(),
		SerialNumber: serial,
		Suffix:       1,
		ItemType:     "Alpha",
		Tuning:       "C4",
		Frequency:    "440",
		Stage:        enums.ItemStageOrdered,
	}
}

func TestSetStageStampsDate(t *testing.T) {
	repo := newStubItemRepo()
	item := newWorkItem("SW-3001-1")
	repo.items[item.ID] = item
	svc := newTestItemService(t, repo, &stubPinRepo{})

	require.NoError(t, svc.SetStage(context.Background(), item.ID, enums.ItemStageTuned))

	updates := repo.updates[item.ID]
	require.NotNil(t, updates)
	assert.Equal(t, enums.ItemStageTuned, updates["stage"])
	dates, ok := updates["status_change_dates"].(types.TimeMap)
	require.True(t, ok)
	assert.Contains(t, dates, "tuned")
}

func TestSetStageBuildingPinsSpec(t *testing.T) {
	repo := newStubItemRepo()
	pins := &stubPinRepo{}
	item := newWorkItem("SW-3002-1")
	repo.items[item.ID] = item
	svc := newTestItemService(t, repo, pins)

	require.NoError(t, svc.SetStage(context.Background(), item.ID, enums.ItemStageBuilding))

	pinned := pins.pinned[item.SerialNumber]
	require.NotNil(t, pinned)
	assert.Equal(t, "Alpha", pinned.ItemType)
	assert.Equal(t, "C4", pinned.Tuning)
	assert.Equal(t, "440", pinned.Frequency)

	// Toggling building again keeps the original pin.
	item.ItemType = "Orion"
	require.NoError(t, svc.SetStage(context.Background(), item.ID, enums.ItemStageBuilding))
	assert.Equal(t, "Alpha", pins.pinned[item.SerialNumber].ItemType)
}

func TestSetStageRefusedOnArchivedItem(t *testing.T) {
	repo := newStubItemRepo()
	item := newWorkItem("SW-3003-1")
	item.Archived = true
	repo.items[item.ID] = item
	svc := newTestItemService(t, repo, &stubPinRepo{})

	err := svc.SetStage(context.Background(), item.ID, enums.ItemStageBuilding)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestArchiveManualWritesProtectedReason(t *testing.T) {
	repo := newStubItemRepo()
	item := newWorkItem("SW-3004-1")
	repo.items[item.ID] = item
	svc := newTestItemService(t, repo, &stubPinRepo{})

	require.NoError(t, svc.ArchiveManual(context.Background(), item.ID, "customer cancelled by phone"))
	assert.True(t, item.Archived)
	assert.Equal(t, enums.ReasonManuallyRemoved, item.ArchivedReason)

	// Second call is a no-op.
	repo.updates = map[uuid.UUID]map[string]any{}
	require.NoError(t, svc.ArchiveManual(context.Background(), item.ID, ""))
	assert.Empty(t, repo.updates)
}

func TestGetNotFound(t *testing.T) {
	svc := newTestItemService(t, newStubItemRepo(), &stubPinRepo{})

	_, err := svc.Get(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
