package specs

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/types"
)

// Resolver reconciles freshly extracted specifications with whatever has
// already been committed for a serial number. Once a unit is stamped and in
// production, edits to the platform listing must not change what the workshop
// floor sees, so the lookup order is: pinned authoritative record, historical
// data-file override, cached mapping snapshot, extracted.
type Resolver struct {
	repo      Repository
	mappings  MappingSnapshotReader
	overrides map[string]types.ItemSpec
	logger    *logger.Logger
}

// NewResolver builds a resolver with the required dependencies.
func NewResolver(repo Repository, mappings MappingSnapshotReader, logg *logger.Logger) (*Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("authoritative spec repository required")
	}
	if mappings == nil {
		return nil, fmt.Errorf("mapping snapshot reader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	overrides, err := loadSpecOverrides()
	if err != nil {
		return nil, err
	}
	return &Resolver{
		repo:      repo,
		mappings:  mappings,
		overrides: overrides,
		logger:    logg,
	}, nil
}

// WithTx returns a resolver whose persistence reads run inside tx. The
// caller supplies the tx-bound snapshot reader; both lookup layers must see
// the same transaction or same-run mapping writes stay invisible.
func (r *Resolver) WithTx(tx *gorm.DB, mappings MappingSnapshotReader) *Resolver {
	if tx == nil {
		return r
	}
	clone := *r
	clone.repo = r.repo.WithTx(tx)
	if mappings != nil {
		clone.mappings = mappings
	}
	return &clone
}

// Reconcile returns the final specification for a serial number.
func (r *Resolver) Reconcile(ctx context.Context, serialNumber string, extracted types.ItemSpec) (types.ItemSpec, error) {
	pinned, err := r.repo.FindBySerial(ctx, serialNumber)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return extracted, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pinned spec")
	}
	if pinned != nil {
		return extracted.Merge(types.ItemSpec{
			ItemType:  pinned.ItemType,
			Tuning:    pinned.Tuning,
			Frequency: pinned.Frequency,
			Color:     pinned.Color,
		}), nil
	}

	if override, ok := r.overrides[serialNumber]; ok {
		logCtx := r.logger.WithSerial(ctx, serialNumber)
		r.logger.Info(logCtx, "applying historical spec override")
		return extracted.Merge(override), nil
	}

	mapping, err := r.mappings.FindMappingBySerial(ctx, serialNumber)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return extracted, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load mapping snapshot")
	}
	if mapping != nil && !mapping.CachedSpec.IsZero() {
		return extracted.Merge(mapping.CachedSpec), nil
	}

	return extracted, nil
}
