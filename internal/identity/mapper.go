package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/types"
)

// Mapper assigns and looks up stable serial numbers for external line items.
// Existing bindings are returned verbatim and never re-numbered; identity
// stability is the design priority, over update-ability.
type Mapper struct {
	store  MappingStore
	logger *logger.Logger
}

// ResolveInput carries one external line-item identity to resolve.
type ResolveInput struct {
	OrderID            uuid.UUID
	OrderNumber        string
	ExternalLineItemID string
	// DesiredCount is the live quantity on the line item.
	DesiredCount int
	Title        string
	CachedSpec   types.ItemSpec
}

// NewMapper builds an identity mapper with the required dependencies.
func NewMapper(store MappingStore, logg *logger.Logger) (*Mapper, error) {
	if store == nil {
		return nil, fmt.Errorf("mapping store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Mapper{store: store, logger: logg}, nil
}

// WithTx returns a mapper whose store operations run inside tx.
func (m *Mapper) WithTx(tx *gorm.DB) *Mapper {
	if tx == nil {
		return m
	}
	return &Mapper{store: m.store.WithTx(tx), logger: m.logger}
}

// Store exposes the mapper's backing store so collaborators reading the
// mapping snapshot share the mapper's transaction.
func (m *Mapper) Store() MappingStore {
	return m.store
}

// ResolveSerials returns the ordered serial numbers for an external line-item
// id, allocating new suffixes when the live quantity exceeds the number of
// existing bindings. Allocation scans the order's consumed-suffix set for the
// smallest unused positive integer; suffixes are never recycled.
func (m *Mapper) ResolveSerials(ctx context.Context, input ResolveInput) ([]string, error) {
	if input.ExternalLineItemID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external line item id required")
	}
	if input.OrderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}

	existing, err := m.store.FindByExternalID(ctx, input.ExternalLineItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load mapping entries")
	}

	serials := make([]string, 0, len(existing))
	for _, entry := range existing {
		serials = append(serials, entry.SerialNumber)
	}
	if len(serials) >= input.DesiredCount {
		return serials, nil
	}

	consumed, err := m.store.ConsumedSuffixes(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load consumed suffixes")
	}
	used := make(map[int]bool, len(consumed))
	for _, s := range consumed {
		used[s] = true
	}

	need := input.DesiredCount - len(serials)
	for allocated := 0; allocated < need; {
		suffix := smallestUnused(used)
		used[suffix] = true

		claimed, err := m.store.ClaimSuffix(ctx, input.OrderID, suffix)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim suffix")
		}
		if !claimed {
			// Raced with another writer; move on to the next free suffix.
			continue
		}

		serial := fmt.Sprintf("%s-%d", input.OrderNumber, suffix)
		entry := &models.ItemMapping{
			ID:                 uuid.New(),
			OrderID:            input.OrderID,
			OrderNumber:        input.OrderNumber,
			ExternalLineItemID: input.ExternalLineItemID,
			Suffix:             suffix,
			SerialNumber:       serial,
			CachedTitle:        input.Title,
			CachedSpec:         input.CachedSpec,
		}

		stored, found, err := m.store.InsertMapping(ctx, entry)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeIdentityConflict {
				// The serial is bound to a different line item. Refuse the
				// rebind, keep the original binding, and take another suffix.
				logCtx := m.logger.WithSerial(m.logger.WithOrder(ctx, input.OrderNumber), serial)
				m.logger.Warn(logCtx, "refusing serial rebind, original binding wins")
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist mapping entry")
		}
		if found && stored.SerialNumber != serial {
			logCtx := m.logger.WithSerial(m.logger.WithOrder(ctx, input.OrderNumber), stored.SerialNumber)
			m.logger.Warn(logCtx, "mapping slot already bound, keeping original serial")
		}

		serials = append(serials, stored.SerialNumber)
		allocated++
	}

	return serials, nil
}

func smallestUnused(used map[int]bool) int {
	for candidate := 1; ; candidate++ {
		if !used[candidate] {
			return candidate
		}
	}
}
