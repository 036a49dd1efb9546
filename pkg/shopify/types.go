package shopify

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the normalized representation of one platform order.
type Order struct {
	ExternalID        string
	OrderNumber       int
	Name              string
	Email             string
	CustomerName      string
	ShippingCountry   string
	Note              string
	Currency          string
	TotalPrice        decimal.Decimal
	FulfillmentStatus string
	CancelledAt       *time.Time
	CreatedAt         time.Time
	LineItems         []LineItem
	Fulfillments      []Fulfillment
}

// LineItem is one priced entry within a platform order; it may represent
// quantity > 1 of the same product.
type LineItem struct {
	ExternalID          string
	Title               string
	VariantTitle        string
	Quantity            int
	FulfillableQuantity int
	FulfillmentStatus   string
	Properties          []Property
}

// Property is a custom key/value attached to a line item by the storefront.
type Property struct {
	Name  string
	Value string
}

// Fulfillment is one shipment record on a platform order.
type Fulfillment struct {
	TrackingNumber  string
	TrackingCompany string
	TrackingURL     string
	CreatedAt       time.Time
}

// --- wire format ---

type ordersEnvelope struct {
	Orders []orderJSON `json:"orders"`
}

type orderJSON struct {
	ID                int64             `json:"id"`
	OrderNumber       int               `json:"order_number"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	Note              string            `json:"note"`
	Currency          string            `json:"currency"`
	TotalPrice        string            `json:"total_price"`
	FulfillmentStatus string            `json:"fulfillment_status"`
	CancelledAt       *string           `json:"cancelled_at"`
	CreatedAt         string            `json:"created_at"`
	Customer          *customerJSON     `json:"customer"`
	ShippingAddress   *addressJSON      `json:"shipping_address"`
	LineItems         []lineItemJSON    `json:"line_items"`
	Fulfillments      []fulfillmentJSON `json:"fulfillments"`
}

type customerJSON struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type addressJSON struct {
	CountryCode string `json:"country_code"`
}

type lineItemJSON struct {
	ID                  int64          `json:"id"`
	Title               string         `json:"title"`
	VariantTitle        string         `json:"variant_title"`
	Quantity            int            `json:"quantity"`
	FulfillableQuantity int            `json:"fulfillable_quantity"`
	FulfillmentStatus   string         `json:"fulfillment_status"`
	Properties          []propertyJSON `json:"properties"`
}

type propertyJSON struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type fulfillmentJSON struct {
	TrackingNumber  string `json:"tracking_number"`
	TrackingCompany string `json:"tracking_company"`
	TrackingURL     string `json:"tracking_url"`
	CreatedAt       string `json:"created_at"`
}

func (o orderJSON) normalize() Order {
	out := Order{
		ExternalID:        strconv.FormatInt(o.ID, 10),
		OrderNumber:       o.OrderNumber,
		Name:              o.Name,
		Email:             o.Email,
		Note:              o.Note,
		Currency:          o.Currency,
		FulfillmentStatus: o.FulfillmentStatus,
	}
	// Malformed money/date fields degrade to zero values rather than failing
	// the whole order.
	if total, err := decimal.NewFromString(o.TotalPrice); err == nil {
		out.TotalPrice = total
	}
	if created, err := time.Parse(time.RFC3339, o.CreatedAt); err == nil {
		out.CreatedAt = created
	}
	if o.CancelledAt != nil {
		if cancelled, err := time.Parse(time.RFC3339, *o.CancelledAt); err == nil {
			out.CancelledAt = &cancelled
		}
	}
	if o.Customer != nil {
		name := o.Customer.FirstName
		if o.Customer.LastName != "" {
			if name != "" {
				name += " "
			}
			name += o.Customer.LastName
		}
		out.CustomerName = name
	}
	if o.ShippingAddress != nil {
		out.ShippingCountry = o.ShippingAddress.CountryCode
	}
	for _, li := range o.LineItems {
		out.LineItems = append(out.LineItems, li.normalize())
	}
	for _, f := range o.Fulfillments {
		ff := Fulfillment{
			TrackingNumber:  f.TrackingNumber,
			TrackingCompany: f.TrackingCompany,
			TrackingURL:     f.TrackingURL,
		}
		if created, err := time.Parse(time.RFC3339, f.CreatedAt); err == nil {
			ff.CreatedAt = created
		}
		out.Fulfillments = append(out.Fulfillments, ff)
	}
	return out
}

func (li lineItemJSON) normalize() LineItem {
	out := LineItem{
		ExternalID:          strconv.FormatInt(li.ID, 10),
		Title:               li.Title,
		VariantTitle:        li.VariantTitle,
		Quantity:            li.Quantity,
		FulfillableQuantity: li.FulfillableQuantity,
		FulfillmentStatus:   li.FulfillmentStatus,
	}
	for _, p := range li.Properties {
		value := ""
		if p.Value != nil {
			switch v := p.Value.(type) {
			case string:
				value = v
			case float64:
				value = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		out.Properties = append(out.Properties, Property{Name: p.Name, Value: value})
	}
	return out
}
