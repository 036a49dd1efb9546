package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/reiger65/stonewhistle-workshop-manager/internal/identity"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/items"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/orders"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/specs"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/enums"
	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/metrics"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/shopify"
)

// Period bounds how far back a full sync reaches into the feed.
type Period string

const (
	Period1Week   Period = "1week"
	Period1Month  Period = "1month"
	Period3Months Period = "3months"
	Period6Months Period = "6months"
	Period1Year   Period = "1year"
	PeriodAll     Period = "all"
)

// ParsePeriod validates a period string from callers.
func ParsePeriod(value string) (Period, error) {
	switch Period(value) {
	case Period1Week, Period1Month, Period3Months, Period6Months, Period1Year, PeriodAll:
		return Period(value), nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unknown sync period %q", value))
	}
}

// Cutoff returns the feed lower bound for the period. ok is false for
// PeriodAll, meaning no bound.
func (p Period) Cutoff(now time.Time) (cutoff time.Time, ok bool) {
	switch p {
	case Period1Week:
		return now.AddDate(0, 0, -7), true
	case Period1Month:
		return now.AddDate(0, -1, 0), true
	case Period3Months:
		return now.AddDate(0, -3, 0), true
	case Period6Months:
		return now.AddDate(0, -6, 0), true
	case Period1Year:
		return now.AddDate(-1, 0, 0), true
	default:
		return time.Time{}, false
	}
}

// OrderSource is the external platform surface the driver pulls from.
type OrderSource interface {
	ListOrders(ctx context.Context, params shopify.ListOrdersParams) ([]shopify.Order, error)
	GetOrderByName(ctx context.Context, name string) (*shopify.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RunSummary is the terminal report of one reconciliation run.
type RunSummary struct {
	Period             Period
	Total              int
	Succeeded          int
	Failed             int
	OrdersArchived     int
	ItemsCreated       int
	ItemsArchived      int
	ItemsReactivated   int
	DuplicatesArchived int
	StartedAt          time.Time
	Duration           time.Duration
	// Err aggregates per-order failures; the run keeps going past them.
	Err error
}

// SyncOneOptions tweaks a single-order sync.
type SyncOneOptions struct {
	// ForceReactivate reactivates archived items even when the feed does not
	// report them fulfillable. Protection predicates still win.
	ForceReactivate bool
}

// Driver orchestrates reconciliation runs: duplicate remediation, identity
// mapping, specification resolution, and the lifecycle state machine, one
// order at a time with per-order commits.
type Driver struct {
	source   OrderSource
	tx       txRunner
	orders   orders.Repository
	items    items.Repository
	mapper   *identity.Mapper
	resolver *specs.Resolver
	policy   *Policy
	notifier Notifier
	backup   BackupScheduler
	metrics  *metrics.SyncMetrics
	logger   *logger.Logger
	prefix   string
	now      func() time.Time
}

// DriverDeps carries the driver's collaborators.
type DriverDeps struct {
	Source            OrderSource
	Tx                txRunner
	Orders            orders.Repository
	Items             items.Repository
	Mapper            *identity.Mapper
	Resolver          *specs.Resolver
	Policy            *Policy
	Notifier          Notifier
	Backup            BackupScheduler
	Metrics           *metrics.SyncMetrics
	Logger            *logger.Logger
	OrderNumberPrefix string
}

// NewDriver validates the dependencies and builds a reconciliation driver.
func NewDriver(deps DriverDeps) (*Driver, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("order source required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Items == nil {
		return nil, fmt.Errorf("items repository required")
	}
	if deps.Mapper == nil {
		return nil, fmt.Errorf("identity mapper required")
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("spec resolver required")
	}
	if deps.Policy == nil {
		return nil, fmt.Errorf("lifecycle policy required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.OrderNumberPrefix == "" {
		return nil, fmt.Errorf("order number prefix required")
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(deps.Logger)
	}
	return &Driver{
		source:   deps.Source,
		tx:       deps.Tx,
		orders:   deps.Orders,
		items:    deps.Items,
		mapper:   deps.Mapper,
		resolver: deps.Resolver,
		policy:   deps.Policy,
		notifier: notifier,
		backup:   deps.Backup,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		prefix:   deps.OrderNumberPrefix,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// SyncAll reconciles every feed order within the period. Single-order
// failures are collected into the summary and never block the rest of the
// batch. A fully clean run schedules a store backup.
func (d *Driver) SyncAll(ctx context.Context, period Period) (*RunSummary, error) {
	started := d.now()
	summary := &RunSummary{Period: period, StartedAt: started}

	params := shopify.ListOrdersParams{}
	if cutoff, ok := period.Cutoff(started); ok {
		params.CreatedAtMin = cutoff
	}

	feedOrders, err := d.source.ListOrders(ctx, params)
	if err != nil {
		d.notifier.Failed(ctx, "feed fetch failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list feed orders")
	}

	summary.Total = len(feedOrders)

	archivedOrders, err := d.archiveMissingOrders(ctx, feedOrders, params.CreatedAtMin)
	if err != nil {
		// Order-level archival trouble should not stop the per-order work.
		d.logger.Error(ctx, "archiving missing orders", err)
		summary.Err = multierr.Append(summary.Err, err)
	}
	summary.OrdersArchived = archivedOrders

	for i, feed := range feedOrders {
		if err := ctx.Err(); err != nil {
			// Aborting between orders is safe; committed orders stay committed.
			summary.Err = multierr.Append(summary.Err, err)
			break
		}

		label := d.orderNumberFor(feed)
		d.notifier.Progress(ctx, Progress{Current: i + 1, Total: summary.Total, Label: label})

		stats, err := d.syncOrder(ctx, feed, SyncOneOptions{})
		if err != nil {
			logCtx := d.logger.WithOrder(ctx, label)
			d.logger.Error(logCtx, "order sync failed, continuing", err)
			summary.Failed++
			summary.Err = multierr.Append(summary.Err,
				fmt.Errorf("order %s: %w", label, err))
			continue
		}
		summary.Succeeded++
		summary.addOrderStats(stats)
	}

	summary.Duration = d.now().Sub(started)
	d.metrics.ObserveRun(summary.Duration, summary.Failed == 0 && summary.Err == nil)
	d.metrics.CountItems(summary.ItemsCreated, summary.ItemsArchived,
		summary.ItemsReactivated, summary.DuplicatesArchived)

	if summary.Err == nil && d.backup != nil {
		if err := d.backup.Schedule(ctx); err != nil {
			// Backup scheduling is best-effort; report but do not fail the run.
			d.logger.Error(ctx, "scheduling backup", err)
		}
	}

	d.notifier.Done(ctx, summary)
	return summary, summary.Err
}

// SyncOne reconciles a single order by its internal order number.
func (d *Driver) SyncOne(ctx context.Context, orderNumber string, opts SyncOneOptions) error {
	if orderNumber == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}

	feed, err := d.source.GetOrderByName(ctx, d.platformNameFor(orderNumber))
	if err != nil {
		return err
	}

	_, err = d.syncOrder(ctx, *feed, opts)
	return err
}

// DedupeOrder runs the duplicate remediation pass alone, collapsing each
// external line-item identity to one canonical item.
func (d *Driver) DedupeOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	if orderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	archived := 0
	err := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := dedupeOrderItems(ctx, d.items.WithTx(tx), orderID, nil, d.now())
		archived = n
		return err
	})
	if err != nil {
		return 0, err
	}
	d.metrics.CountItems(0, 0, 0, archived)
	return archived, nil
}

// archiveMissingOrders archives internally-active orders that vanished from
// the current batch. Only orders young enough to belong in the batch window
// are considered, so a bounded period never archives old history.
func (d *Driver) archiveMissingOrders(ctx context.Context, feedOrders []shopify.Order, cutoff time.Time) (int, error) {
	visible := make(map[string]bool, len(feedOrders))
	for _, feed := range feedOrders {
		visible[feed.ExternalID] = true
	}

	active, err := d.orders.ListActive(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active orders")
	}

	archived := 0
	var errs error
	for _, order := range active {
		if order.ExternalID == "" || visible[order.ExternalID] {
			continue
		}
		placed := order.PlacedAt
		if placed.IsZero() {
			placed = order.CreatedAt
		}
		if !cutoff.IsZero() && placed.Before(cutoff) {
			continue
		}

		order := order
		err := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return d.archiveOrder(ctx, tx, &order, enums.ReasonOrderGone)
		})
		if err != nil {
			errs = multierr.Append(errs,
				fmt.Errorf("archive order %s: %w", order.OrderNumber, err))
			continue
		}
		archived++
	}
	return archived, errs
}

func (d *Driver) orderNumberFor(feed shopify.Order) string {
	return fmt.Sprintf("%s-%d", d.prefix, feed.OrderNumber)
}

// platformNameFor converts an internal order number to the platform's order
// name, e.g. SW-1042 -> #1042.
func (d *Driver) platformNameFor(orderNumber string) string {
	trimmed := strings.TrimPrefix(orderNumber, d.prefix+"-")
	return "#" + trimmed
}
