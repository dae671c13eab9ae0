package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SourceKey identifies one observation of a business in one upstream source.
type SourceKey struct {
	Source string `json:"source" validate:"required"`
	UID    string `json:"uid" validate:"required"`
}

func (k SourceKey) String() string {
	return k.Source + ":" + k.UID
}

// SourceKeys is the provenance set of a business, unique by (source, uid), stored as jsonb.
type SourceKeys []SourceKey

func (s SourceKeys) Contains(key SourceKey) bool {
	for _, k := range s {
		if k == key {
			return true
		}
	}
	return false
}

func (s *SourceKeys) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("SourceKeys.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(raw, (*[]SourceKey)(s))
}

func (s SourceKeys) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]SourceKey(s))
}
