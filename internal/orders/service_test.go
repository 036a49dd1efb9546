package orders

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/enums"
	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/pagination"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/types"
)

type passTxRunner struct{}

func (passTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOrderRepo struct {
	orders  map[uuid.UUID]*models.Order
	updates map[uuid.UUID]map[string]any
	deleted []uuid.UUID
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{
		orders:  map[uuid.UUID]*models.Order{},
		updates: map[uuid.UUID]map[string]any{},
	}
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrderRepo) InsertOrGet(_ context.Context, order *models.Order) (*models.Order, bool, error) {
	s.orders[order.ID] = order
	return order, false, nil
}

func (s *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if order, ok := s.orders[id]; ok {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) FindByExternalID(_ context.Context, externalID string) (*models.Order, error) {
	for _, order := range s.orders {
		if order.ExternalID == externalID {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) FindByOrderNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	for _, order := range s.orders {
		if order.OrderNumber == orderNumber {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) ListActive(_ context.Context) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		if order.Status != enums.OrderStatusArchived && order.Status != enums.OrderStatusCancelled {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *stubOrderRepo) ListPage(_ context.Context, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		if order.Status == enums.OrderStatusArchived || order.Status == enums.OrderStatusCancelled {
			continue
		}
		if cursor != nil && !order.CreatedAt.Before(cursor.CreatedAt) {
			continue
		}
		out = append(out, *order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubOrderRepo) Update(_ context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates[id] = updates
	if order, ok := s.orders[id]; ok {
		if status, ok := updates["status"].(enums.OrderStatus); ok {
			order.Status = status
		}
		if reason, ok := updates["archived_reason"].(string); ok {
			order.ArchivedReason = reason
		}
	}
	return nil
}

func (s *stubOrderRepo) FindEmptyPlaceholders(_ context.Context) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		if len(order.OrderNumber) > len(PlaceholderPrefix) &&
			order.OrderNumber[:len(PlaceholderPrefix)] == PlaceholderPrefix &&
			len(order.Items) == 0 {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *stubOrderRepo) HardDelete(_ context.Context, id uuid.UUID) error {
	delete(s.orders, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, passTxRunner{}, logger.New(logger.Options{ServiceName: "test"}))
	require.NoError(t, err)
	return svc
}

func TestSetStatusStampsChangeDate(t *testing.T) {
	repo := newStubOrderRepo()
	order := &models.Order{ID: uuid.New(), OrderNumber: "SW-1001", Status: enums.OrderStatusOrdered}
	repo.orders[order.ID] = order
	svc := newTestService(t, repo)

	require.NoError(t, svc.SetStatus(context.Background(), order.ID, enums.OrderStatusShipping))

	updates := repo.updates[order.ID]
	require.NotNil(t, updates)
	assert.Equal(t, enums.OrderStatusShipping, updates["status"])
	dates, ok := updates["status_change_dates"].(types.TimeMap)
	require.True(t, ok)
	assert.Contains(t, dates, string(enums.OrderStatusShipping))
}

func TestSetStatusNoopWhenUnchanged(t *testing.T) {
	repo := newStubOrderRepo()
	order := &models.Order{ID: uuid.New(), OrderNumber: "SW-1002", Status: enums.OrderStatusShipping}
	repo.orders[order.ID] = order
	svc := newTestService(t, repo)

	require.NoError(t, svc.SetStatus(context.Background(), order.ID, enums.OrderStatusShipping))
	assert.Empty(t, repo.updates)
}

func TestSetStatusValidation(t *testing.T) {
	svc := newTestService(t, newStubOrderRepo())

	err := svc.SetStatus(context.Background(), uuid.Nil, enums.OrderStatusShipping)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	err = svc.SetStatus(context.Background(), uuid.New(), enums.OrderStatus("bogus"))
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestArchiveSetsReason(t *testing.T) {
	repo := newStubOrderRepo()
	order := &models.Order{ID: uuid.New(), OrderNumber: "SW-1003", Status: enums.OrderStatusOrdered}
	repo.orders[order.ID] = order
	svc := newTestService(t, repo)

	require.NoError(t, svc.Archive(context.Background(), order.ID, "no longer active in source feed"))
	assert.Equal(t, enums.OrderStatusArchived, order.Status)
	assert.Equal(t, "no longer active in source feed", order.ArchivedReason)

	// Archiving twice is a no-op, not an error.
	repo.updates = map[uuid.UUID]map[string]any{}
	require.NoError(t, svc.Archive(context.Background(), order.ID, "different reason"))
	assert.Empty(t, repo.updates)
}

func TestCleanupPlaceholders(t *testing.T) {
	repo := newStubOrderRepo()
	empty := &models.Order{ID: uuid.New(), OrderNumber: PlaceholderPrefix + "a1b2", Status: enums.OrderStatusOrdered}
	kept := &models.Order{ID: uuid.New(), OrderNumber: "SW-1004", Status: enums.OrderStatusOrdered}
	repo.orders[empty.ID] = empty
	repo.orders[kept.ID] = kept
	svc := newTestService(t, repo)

	deleted, err := svc.CleanupPlaceholders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, []uuid.UUID{empty.ID}, repo.deleted)
}

func TestGetByNumberNotFound(t *testing.T) {
	svc := newTestService(t, newStubOrderRepo())

	_, err := svc.GetByNumber(context.Background(), "SW-9999")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListPagesWithNextCursor(t *testing.T) {
	repo := newStubOrderRepo()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		order := &models.Order{
			ID:          uuid.New(),
			OrderNumber: testOrderNumber(),
			Status:      enums.OrderStatusOrdered,
			CreatedAt:   base.AddDate(0, 0, i),
		}
		repo.orders[order.ID] = order
	}
	svc := newTestService(t, repo)

	first, err := svc.List(context.Background(), pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.True(t, first.Orders[0].CreatedAt.After(first.Orders[1].CreatedAt))

	second, err := svc.List(context.Background(), pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Empty(t, second.NextCursor)
	assert.Equal(t, base, second.Orders[0].CreatedAt)
}

func TestListRejectsMalformedCursor(t *testing.T) {
	svc := newTestService(t, newStubOrderRepo())

	_, err := svc.List(context.Background(), pagination.Params{Cursor: "not-base64!!"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
