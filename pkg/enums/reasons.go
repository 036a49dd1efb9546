package enums

// Archive reason strings written by the reconciliation passes and the
// production UI. The protection predicates match on these, so the wording is
// part of the contract; do not reword casually.
const (
	// ReasonNotFulfillable is written when the platform line item disappears
	// or its quantity drops to zero.
	ReasonNotFulfillable = "no longer fulfillable / delisted"

	// ReasonDuplicate marks items collapsed by the duplicate remediator.
	ReasonDuplicate = "duplicate of lower-suffix item"

	// ReasonOrderGone is written when a whole order vanishes from the feed.
	ReasonOrderGone = "no longer active in source feed"

	// ReasonManuallyRemoved is written by the production UI; protected.
	ReasonManuallyRemoved = "manually removed by operator"

	// ReasonNotInFeed marks historical removals done by hand against the
	// feed's claims; protected.
	ReasonNotInFeed = "no longer present in feed"
)
