package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ItemSpec is the physical specification bag stamped on one production item.
// Empty fields mean "not known"; merge semantics are defined by the
// specification resolver, not here.
type ItemSpec struct {
	ItemType  string `json:"itemType,omitempty"`
	Tuning    string `json:"tuning,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Color     string `json:"color,omitempty"`
	Engraving string `json:"engraving,omitempty"`
}

// IsZero reports whether no specification field was resolved at all.
func (s ItemSpec) IsZero() bool {
	return s.ItemType == "" && s.Tuning == "" && s.Frequency == "" &&
		s.Color == "" && s.Engraving == ""
}

// Merge overlays non-empty fields of override onto s and returns the result.
func (s ItemSpec) Merge(override ItemSpec) ItemSpec {
	out := s
	if override.ItemType != "" {
		out.ItemType = override.ItemType
	}
	if override.Tuning != "" {
		out.Tuning = override.Tuning
	}
	if override.Frequency != "" {
		out.Frequency = override.Frequency
	}
	if override.Color != "" {
		out.Color = override.Color
	}
	if override.Engraving != "" {
		out.Engraving = override.Engraving
	}
	return out
}

// TimeMap records when a status flag was last toggled, keyed by status name.
// Stored as jsonb via the gorm json serializer.
type TimeMap map[string]time.Time

// Stamp sets the timestamp for key, allocating the map when needed.
func (m TimeMap) Stamp(key string, at time.Time) TimeMap {
	if m == nil {
		m = TimeMap{}
	}
	m[key] = at
	return m
}

// Value marshals the map to JSON so it can be written through map-based
// gorm Updates, where the field serializer does not apply.
func (m TimeMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal status dates: %w", err)
	}
	return string(raw), nil
}

// Scan accepts the JSON column forms the drivers hand back.
func (m *TimeMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported status dates column type %T", value)
	}
}
