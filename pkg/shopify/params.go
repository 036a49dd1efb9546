package shopify

import (
	"net/url"
	"strconv"
	"time"
)

// ListOrdersParams bound an order listing call.
type ListOrdersParams struct {
	// CreatedAtMin limits the listing to orders created at or after this time.
	// Zero means no lower bound.
	CreatedAtMin time.Time
	// Status filters by platform order status; defaults to "any" so archived
	// and cancelled orders stay visible to the reconciler.
	Status string
}

func (p ListOrdersParams) query(pageSize int) url.Values {
	q := url.Values{}
	status := p.Status
	if status == "" {
		status = "any"
	}
	q.Set("status", status)
	q.Set("limit", strconv.Itoa(pageSize))
	if !p.CreatedAtMin.IsZero() {
		q.Set("created_at_min", p.CreatedAtMin.UTC().Format(time.RFC3339))
	}
	return q
}
