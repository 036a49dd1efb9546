package sync

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/reiger65/stonewhistle-workshop-manager/internal/items"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/enums"
	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
)

// dedupeOrderItems collapses items that share one external line-item identity
// down to the allowed count, keeping the lowest suffixes and archiving the
// rest. allowedFor returns how many active items the feed currently justifies
// for an external id; nil means one, the canonical-item contract. The repair
// is idempotent and safe to run redundantly.
func dedupeOrderItems(ctx context.Context, repo items.Repository, orderID uuid.UUID,
	allowedFor func(externalLineItemID string) int, now time.Time) (int, error) {

	all, err := repo.ListByOrder(ctx, orderID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order items")
	}

	groups := map[string][]int{}
	for i, item := range all {
		if item.Archived || item.ExternalLineItemID == nil || *item.ExternalLineItemID == "" {
			continue
		}
		key := *item.ExternalLineItemID
		groups[key] = append(groups[key], i)
	}

	archived := 0
	for externalID, indexes := range groups {
		allowed := 1
		if allowedFor != nil {
			n := allowedFor(externalID)
			if n <= 0 {
				// The line is gone from the feed entirely. That is a
				// delisting, not a duplication, and the vanished-line pass
				// records it under the right reason.
				continue
			}
			allowed = n
		}
		if len(indexes) <= allowed {
			continue
		}

		sort.Slice(indexes, func(a, b int) bool {
			return all[indexes[a]].Suffix < all[indexes[b]].Suffix
		})

		for _, idx := range indexes[allowed:] {
			item := all[idx]
			err := repo.Update(ctx, item.ID, map[string]any{
				"archived":            true,
				"archived_reason":     enums.ReasonDuplicate,
				"status_change_dates": item.StatusChangeDates.Stamp("archived", now),
			})
			if err != nil {
				return archived, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive duplicate item")
			}
			archived++
		}
	}
	return archived, nil
}
