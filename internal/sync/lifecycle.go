package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/internal/identity"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/items"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/orders"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/specs"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/enums"
	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/shopify"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/types"
)

type orderStats struct {
	created     int
	archived    int
	reactivated int
	duplicates  int
}

func (s *RunSummary) addOrderStats(stats orderStats) {
	s.ItemsCreated += stats.created
	s.ItemsArchived += stats.archived
	s.ItemsReactivated += stats.reactivated
	s.DuplicatesArchived += stats.duplicates
}

// syncOrder reconciles one feed order inside its own transaction: dedupe,
// identity mapping, spec resolution, and the lifecycle decisions, then the
// order-level status refresh.
func (d *Driver) syncOrder(ctx context.Context, feed shopify.Order, opts SyncOneOptions) (orderStats, error) {
	var stats orderStats
	err := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := d.orders.WithTx(tx)
		itemsRepo := d.items.WithTx(tx)
		mapper := d.mapper.WithTx(tx)
		resolver := d.resolver.WithTx(tx, mapper.Store())

		order, err := d.upsertOrder(ctx, ordersRepo, feed)
		if err != nil {
			return err
		}

		quantities := make(map[string]int, len(feed.LineItems))
		for _, line := range feed.LineItems {
			if line.ExternalID != "" {
				quantities[line.ExternalID] = line.Quantity
			}
		}
		duplicates, err := dedupeOrderItems(ctx, itemsRepo, order.ID,
			func(externalID string) int { return quantities[externalID] }, d.now())
		if err != nil {
			return err
		}
		stats.duplicates = duplicates

		seen := make(map[string]bool, len(feed.LineItems))
		for _, line := range feed.LineItems {
			if line.ExternalID == "" {
				continue
			}
			seen[line.ExternalID] = true
			if err := d.reconcileLine(ctx, order, line, itemsRepo, mapper, resolver, opts, &stats); err != nil {
				return err
			}
		}

		if err := d.archiveVanishedLines(ctx, itemsRepo, order.ID, seen, &stats); err != nil {
			return err
		}

		return d.refreshOrderState(ctx, ordersRepo, order, feed)
	})
	return stats, err
}

func (d *Driver) upsertOrder(ctx context.Context, repo orders.Repository, feed shopify.Order) (*models.Order, error) {
	candidate := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     d.orderNumberFor(feed),
		ExternalID:      feed.ExternalID,
		Status:          enums.OrderStatusOrdered,
		CustomerName:    feed.CustomerName,
		CustomerEmail:   feed.Email,
		ShippingCountry: feed.ShippingCountry,
		Note:            feed.Note,
		Total:           feed.TotalPrice,
		Currency:        feed.Currency,
		PlacedAt:        feed.CreatedAt,
	}
	candidate.StatusChangeDates = candidate.StatusChangeDates.Stamp(
		string(enums.OrderStatusOrdered), d.now())

	order, existed, err := repo.InsertOrGet(ctx, candidate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert order")
	}
	if existed && order.PlacedAt.IsZero() && !feed.CreatedAt.IsZero() {
		// Rows mirrored before the platform creation time was stored.
		if err := repo.Update(ctx, order.ID, map[string]any{"placed_at": feed.CreatedAt}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "backfill placed_at")
		}
		order.PlacedAt = feed.CreatedAt
	}
	if !existed {
		logCtx := d.logger.WithOrder(ctx, order.OrderNumber)
		d.logger.Info(logCtx, "order mirrored from feed")
	}
	return order, nil
}

// reconcileLine handles one external line item: resolve the stable serials
// for the live quantity, then run each serial through the decision table.
func (d *Driver) reconcileLine(ctx context.Context, order *models.Order, line shopify.LineItem,
	itemsRepo items.Repository, mapper *identity.Mapper, resolver *specs.Resolver,
	opts SyncOneOptions, stats *orderStats) error {

	extraction := specs.Extract(line)

	serials, err := mapper.ResolveSerials(ctx, identity.ResolveInput{
		OrderID:            order.ID,
		OrderNumber:        order.OrderNumber,
		ExternalLineItemID: line.ExternalID,
		DesiredCount:       line.Quantity,
		Title:              line.Title,
		CachedSpec:         extraction.Spec,
	})
	if err != nil {
		return err
	}

	state := LineState{
		Present:     true,
		Quantity:    line.Quantity,
		Fulfillable: extraction.Fulfillable,
	}
	if line.Quantity <= 0 {
		state.Fulfillable = 0
	}

	// Serials beyond the live quantity were archived as duplicates; touching
	// them here would reactivate what the dedupe pass just retired.
	live := serials
	if state.Fulfillable > 0 && line.Quantity > 0 && len(live) > line.Quantity {
		live = live[:line.Quantity]
	}

	for _, serial := range live {
		spec, err := resolver.Reconcile(ctx, serial, extraction.Spec)
		if err != nil {
			return err
		}

		item, err := itemsRepo.FindBySerial(ctx, serial)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item by serial")
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			item = nil
		}

		switch d.policy.Decide(item, state, opts.ForceReactivate) {
		case ActionCreate:
			if err := d.createItem(ctx, itemsRepo, order, line, serial, spec, stats); err != nil {
				return err
			}
		case ActionKeep:
			if err := d.refreshItemSpec(ctx, itemsRepo, item, spec); err != nil {
				return err
			}
		case ActionArchive:
			if err := d.archiveItem(ctx, itemsRepo, item, enums.ReasonNotFulfillable); err != nil {
				return err
			}
			stats.archived++
		case ActionReactivate:
			if err := d.reactivateItem(ctx, itemsRepo, item, spec); err != nil {
				return err
			}
			stats.reactivated++
		case ActionSkip:
			if item != nil && item.Archived && d.policy.Protected(item) {
				logCtx := d.logger.WithSerial(ctx, item.SerialNumber)
				d.logger.Info(logCtx, "protected item stays archived despite feed state")
			}
		}
	}
	return nil
}

func (d *Driver) createItem(ctx context.Context, repo items.Repository, order *models.Order,
	line shopify.LineItem, serial string, spec types.ItemSpec, stats *orderStats) error {

	suffix, err := suffixOf(serial)
	if err != nil {
		return err
	}

	externalID := line.ExternalID
	item := &models.ProductionItem{
		ID:                 uuid.New(),
		OrderID:            order.ID,
		SerialNumber:       serial,
		Suffix:             suffix,
		ExternalLineItemID: &externalID,
		Stage:              enums.ItemStageOrdered,
	}
	item.ApplySpec(spec)
	item.StatusChangeDates = item.StatusChangeDates.Stamp("ordered", d.now())

	if spec.IsZero() {
		// A unit with no resolvable specifications is still tracked; the
		// workshop fills the blanks by hand.
		logCtx := d.logger.WithSerial(ctx, serial)
		d.logger.Warn(logCtx, "line item resolved to zero specifications")
	}

	_, existed, err := repo.InsertOrGet(ctx, item)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}
	if !existed {
		stats.created++
		logCtx := d.logger.WithSerial(d.logger.WithOrder(ctx, order.OrderNumber), serial)
		d.logger.Info(logCtx, "production item created")
	}
	return nil
}

// refreshItemSpec follows listing edits for items not yet frozen. The
// resolver has already applied pins and cached snapshots, so writing its
// output never violates the freeze.
func (d *Driver) refreshItemSpec(ctx context.Context, repo items.Repository,
	item *models.ProductionItem, spec types.ItemSpec) error {

	if item.Spec() == spec {
		return nil
	}
	updated := *item
	updated.ApplySpec(spec)
	err := repo.Update(ctx, item.ID, map[string]any{
		"item_type": updated.ItemType,
		"tuning":    updated.Tuning,
		"frequency": updated.Frequency,
		"color":     updated.Color,
		"engraving": updated.Engraving,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh item spec")
	}
	return nil
}

func (d *Driver) archiveItem(ctx context.Context, repo items.Repository,
	item *models.ProductionItem, reason string) error {

	err := repo.Update(ctx, item.ID, map[string]any{
		"archived":            true,
		"archived_reason":     reason,
		"status_change_dates": item.StatusChangeDates.Stamp("archived", d.now()),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive item")
	}
	logCtx := d.logger.WithSerial(ctx, item.SerialNumber)
	d.logger.Info(logCtx, "item archived: "+reason)
	return nil
}

func (d *Driver) reactivateItem(ctx context.Context, repo items.Repository,
	item *models.ProductionItem, spec types.ItemSpec) error {

	updated := *item
	updated.ApplySpec(item.Spec().Merge(spec))
	err := repo.Update(ctx, item.ID, map[string]any{
		"archived":            false,
		"archived_reason":     "",
		"item_type":           updated.ItemType,
		"tuning":              updated.Tuning,
		"frequency":           updated.Frequency,
		"color":               updated.Color,
		"engraving":           updated.Engraving,
		"status_change_dates": item.StatusChangeDates.Stamp("reactivated", d.now()),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reactivate item")
	}
	logCtx := d.logger.WithSerial(ctx, item.SerialNumber)
	d.logger.Info(logCtx, "item reactivated from feed state")
	return nil
}

// archiveVanishedLines archives active items whose external line item no
// longer appears on the feed order at all.
func (d *Driver) archiveVanishedLines(ctx context.Context, repo items.Repository,
	orderID uuid.UUID, seen map[string]bool, stats *orderStats) error {

	all, err := repo.ListByOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	for i := range all {
		item := &all[i]
		if item.Archived || item.ExternalLineItemID == nil || *item.ExternalLineItemID == "" {
			// Hand-made items without a feed identity are never touched here.
			continue
		}
		if seen[*item.ExternalLineItemID] {
			continue
		}
		if err := d.archiveItem(ctx, repo, item, enums.ReasonNotFulfillable); err != nil {
			return err
		}
		stats.archived++
	}
	return nil
}

// archiveOrder archives the order and every non-archived item on it.
func (d *Driver) archiveOrder(ctx context.Context, tx *gorm.DB, order *models.Order, reason string) error {
	ordersRepo := d.orders.WithTx(tx)
	itemsRepo := d.items.WithTx(tx)

	all, err := itemsRepo.ListByOrder(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}
	for i := range all {
		if all[i].Archived {
			continue
		}
		if err := d.archiveItem(ctx, itemsRepo, &all[i], reason); err != nil {
			return err
		}
	}

	err = ordersRepo.Update(ctx, order.ID, map[string]any{
		"status":          enums.OrderStatusArchived,
		"archived_reason": reason,
		"status_change_dates": order.StatusChangeDates.Stamp(
			string(enums.OrderStatusArchived), d.now()),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive order")
	}
	logCtx := d.logger.WithOrder(ctx, order.OrderNumber)
	d.logger.Info(logCtx, "order archived: "+reason)
	return nil
}

// refreshOrderState follows the feed's fulfillment records: customer edits,
// tracking data, and the ordered->shipping transition.
func (d *Driver) refreshOrderState(ctx context.Context, repo orders.Repository,
	order *models.Order, feed shopify.Order) error {

	updates := map[string]any{}
	if feed.CustomerName != "" && feed.CustomerName != order.CustomerName {
		updates["customer_name"] = feed.CustomerName
	}
	if feed.Email != "" && feed.Email != order.CustomerEmail {
		updates["customer_email"] = feed.Email
	}

	if feed.CancelledAt != nil && order.Status != enums.OrderStatusCancelled {
		updates["status"] = enums.OrderStatusCancelled
		updates["status_change_dates"] = order.StatusChangeDates.Stamp(
			string(enums.OrderStatusCancelled), d.now())
	}

	if len(feed.Fulfillments) > 0 {
		latest := feed.Fulfillments[len(feed.Fulfillments)-1]
		if latest.TrackingNumber != "" && latest.TrackingNumber != order.TrackingNumber {
			updates["tracking_number"] = latest.TrackingNumber
			updates["tracking_carrier"] = latest.TrackingCompany
			updates["tracking_url"] = latest.TrackingURL
		}
		if order.Status == enums.OrderStatusOrdered && feed.CancelledAt == nil {
			updates["status"] = enums.OrderStatusShipping
			updates["status_change_dates"] = order.StatusChangeDates.Stamp(
				string(enums.OrderStatusShipping), d.now())
		}
	}

	if len(updates) == 0 {
		return nil
	}
	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh order state")
	}
	return nil
}

// suffixOf parses the integer component back out of a serial number.
func suffixOf(serial string) (int, error) {
	idx := strings.LastIndex(serial, "-")
	if idx < 0 || idx == len(serial)-1 {
		return 0, pkgerrors.New(pkgerrors.CodeInternal,
			fmt.Sprintf("malformed serial number %q", serial))
	}
	suffix, err := strconv.Atoi(serial[idx+1:])
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err,
			fmt.Sprintf("malformed serial number %q", serial))
	}
	return suffix, nil
}
