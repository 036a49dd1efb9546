package items

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/internal/specs"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/enums"
	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     Repository
	specRepo specs.Repository
	tx       txRunner
	logger   *logger.Logger
	now      func() time.Time
}

// NewService builds an items service with the required dependencies.
func NewService(repo Repository, specRepo specs.Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("items repository required")
	}
	if specRepo == nil {
		return nil, fmt.Errorf("authoritative spec repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		specRepo: specRepo,
		tx:       tx,
		logger:   logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetStage records a production stage toggle from the workshop floor. The
// transition into building pins the item's specification permanently.
func (s *service) SetStage(ctx context.Context, itemID uuid.UUID, stage enums.ItemStage) error {
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if !stage.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown production stage")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindByID(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
		}
		if item.Archived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "archived items cannot change stage")
		}

		dates := item.StatusChangeDates.Stamp(stage.String(), s.now())
		if err := repo.Update(ctx, item.ID, map[string]any{
			"stage":               stage,
			"status_change_dates": dates,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item stage")
		}

		logCtx := s.logger.WithSerial(ctx, item.SerialNumber)
		s.logger.Info(logCtx, "production stage set to "+stage.String())

		if stage == enums.ItemStageBuilding {
			return s.pinSpec(ctx, tx, item)
		}
		return nil
	})
}

// pinSpec freezes the item's current specification. First write wins; a
// repeated building toggle keeps the original pin.
func (s *service) pinSpec(ctx context.Context, tx *gorm.DB, item *models.ProductionItem) error {
	_, err := s.specRepo.WithTx(tx).Pin(ctx, &models.AuthoritativeSpec{
		ID:           uuid.New(),
		SerialNumber: item.SerialNumber,
		ItemType:     item.ItemType,
		Tuning:       item.Tuning,
		Frequency:    item.Frequency,
		Color:        item.Color,
		PinnedAt:     s.now(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pin authoritative spec")
	}
	logCtx := s.logger.WithSerial(ctx, item.SerialNumber)
	s.logger.Info(logCtx, "authoritative spec pinned")
	return nil
}

// ArchiveManual archives an item at the operator's request. The reason string
// is a protection predicate: no sync run will ever reactivate this item.
func (s *service) ArchiveManual(ctx context.Context, itemID uuid.UUID, note string) error {
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindByID(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
		}
		if item.Archived {
			return nil
		}

		updates := map[string]any{
			"archived":            true,
			"archived_reason":     enums.ReasonManuallyRemoved,
			"status_change_dates": item.StatusChangeDates.Stamp("archived", s.now()),
		}
		if note != "" {
			updates["note"] = note
		}
		if err := repo.Update(ctx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive item")
		}

		logCtx := s.logger.WithSerial(ctx, item.SerialNumber)
		s.logger.Info(logCtx, "item manually archived")
		return nil
	})
}

func (s *service) Get(ctx context.Context, itemID uuid.UUID) (*models.ProductionItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	return item, nil
}
