package specs

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/reiger65/stonewhistle-workshop-manager/pkg/types"
)

// Historical per-serial corrections for orders whose platform listings were
// edited after the units were stamped. Pure data, keyed by serial number.
//
//go:embed data/spec_overrides.json
var specOverridesJSON []byte

func loadSpecOverrides() (map[string]types.ItemSpec, error) {
	overrides := map[string]types.ItemSpec{}
	if err := json.Unmarshal(specOverridesJSON, &overrides); err != nil {
		return nil, fmt.Errorf("parsing spec overrides: %w", err)
	}
	return overrides, nil
}
