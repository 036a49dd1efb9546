package sync

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/db/models"
)

// Serials archived by hand during historical remediations. The feed has been
// observed to resurrect such items, so they stay archived no matter what it
// says. Pure data, one serial per entry.
//
//go:embed data/protected_serials.json
var protectedSerialsJSON []byte

// Action is one lifecycle decision for a (internal item, external line) pair.
type Action int

const (
	// ActionSkip leaves the record untouched.
	ActionSkip Action = iota
	// ActionCreate creates a new active item.
	ActionCreate
	// ActionKeep keeps an active item active, refreshing its specification.
	ActionKeep
	// ActionArchive archives an active item.
	ActionArchive
	// ActionReactivate brings an archived item back to active.
	ActionReactivate
)

// LineState is what the external feed currently says about one line item.
type LineState struct {
	// Present is false when the line item vanished from the order entirely.
	Present     bool
	Quantity    int
	Fulfillable int
}

// Policy is the explicit reactivation/archival decision table. Protection
// predicates are evaluated first and always win.
type Policy struct {
	protected map[string]bool
}

// NewPolicy loads the known-problem serial list and builds the decision table.
func NewPolicy() (*Policy, error) {
	var serials []string
	if err := json.Unmarshal(protectedSerialsJSON, &serials); err != nil {
		return nil, fmt.Errorf("parsing protected serials: %w", err)
	}
	protected := make(map[string]bool, len(serials))
	for _, s := range serials {
		protected[s] = true
	}
	return &Policy{protected: protected}, nil
}

// Protected reports whether an archived item may never be reactivated by a
// sync run: manual removals, hand-curated feed removals, and the
// known-problem list.
func (p *Policy) Protected(item *models.ProductionItem) bool {
	if item == nil {
		return false
	}
	reason := strings.ToLower(item.ArchivedReason)
	if strings.Contains(reason, "manually removed") {
		return true
	}
	if strings.Contains(reason, "no longer present in feed") {
		return true
	}
	return p.protected[item.SerialNumber]
}

// Decide returns the lifecycle action for one item against the feed state.
// Precedence: protection predicates, then fulfillable quantity, then the
// caller's explicit force-reactivate request.
func (p *Policy) Decide(item *models.ProductionItem, line LineState, forceReactivate bool) Action {
	if item == nil {
		if line.Present && line.Fulfillable > 0 {
			return ActionCreate
		}
		return ActionSkip
	}

	if item.Archived {
		if p.Protected(item) {
			return ActionSkip
		}
		if line.Present && line.Fulfillable > 0 {
			return ActionReactivate
		}
		if forceReactivate {
			return ActionReactivate
		}
		return ActionSkip
	}

	if !line.Present || line.Fulfillable == 0 {
		return ActionArchive
	}
	return ActionKeep
}
