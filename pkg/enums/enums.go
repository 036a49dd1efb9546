package enums

// OrderStatus mirrors the lifecycle of a mirrored platform order.
type OrderStatus string

const (
	OrderStatusOrdered   OrderStatus = "ordered"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusArchived  OrderStatus = "archived"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValid reports whether the status is a known order status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusOrdered, OrderStatusShipping, OrderStatusDelivered,
		OrderStatusArchived, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ItemStage is one production checkbox on the workshop floor.
type ItemStage string

const (
	ItemStageOrdered   ItemStage = "ordered"
	ItemStageBuilding  ItemStage = "building"
	ItemStageTuned     ItemStage = "tuned"
	ItemStageTested    ItemStage = "tested"
	ItemStageShipped   ItemStage = "shipped"
	ItemStageDelivered ItemStage = "delivered"
)

// ItemStages lists the production stages in workshop order.
var ItemStages = []ItemStage{
	ItemStageOrdered,
	ItemStageBuilding,
	ItemStageTuned,
	ItemStageTested,
	ItemStageShipped,
	ItemStageDelivered,
}

// IsValid reports whether the stage is a known production stage.
func (s ItemStage) IsValid() bool {
	for _, stage := range ItemStages {
		if s == stage {
			return true
		}
	}
	return false
}

func (s ItemStage) String() string {
	return string(s)
}
