package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/enums"
	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo   Repository
	tx     txRunner
	logger *logger.Logger
	now    func() time.Time
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		logger: logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) SetStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == status {
			return nil
		}

		dates := order.StatusChangeDates.Stamp(string(status), s.now())
		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":              status,
			"status_change_dates": dates,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		logCtx := s.logger.WithOrder(ctx, order.OrderNumber)
		s.logger.Info(logCtx, "order status changed to "+string(status))
		return nil
	})
}

func (s *service) Archive(ctx context.Context, orderID uuid.UUID, reason string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "archive reason required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == enums.OrderStatusArchived {
			return nil
		}

		dates := order.StatusChangeDates.Stamp(string(enums.OrderStatusArchived), s.now())
		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":              enums.OrderStatusArchived,
			"archived_reason":     reason,
			"status_change_dates": dates,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive order")
		}

		logCtx := s.logger.WithOrder(ctx, order.OrderNumber)
		s.logger.Info(logCtx, "order archived: "+reason)
		return nil
	})
}

// CleanupPlaceholders hard-deletes hand-made placeholder orders that never
// accumulated items. The one sanctioned hard delete in the system.
func (s *service) CleanupPlaceholders(ctx context.Context) (int, error) {
	deleted := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		placeholders, err := repo.FindEmptyPlaceholders(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list placeholder orders")
		}
		for _, order := range placeholders {
			if err := repo.HardDelete(ctx, order.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete placeholder order")
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info(ctx, fmt.Sprintf("removed %d empty placeholder orders", deleted))
	}
	return deleted, nil
}

func (s *service) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.Order, error) {
	orders, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active orders")
	}
	return orders, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListPage(ctx, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders page")
	}

	page := &Page{Orders: rows}
	if len(rows) > limit {
		page.Orders = rows[:limit]
		last := page.Orders[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}
