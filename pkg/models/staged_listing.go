package models

import (
	"encoding/json"
	"time"
)

type StagedStatus string

const (
	StagedPending  StagedStatus = "pending"
	StagedPromoted StagedStatus = "promoted"
	StagedSkipped  StagedStatus = "skipped"
	StagedError    StagedStatus = "error"
)

// StagedListing is a raw crawled record waiting to be promoted into businesses.
// Field order matches schema: id, kind, source, source_uid, payload, ...
type StagedListing struct {
	ID          int64           `json:"id" db:"id"`
	Kind        string          `json:"kind" db:"kind"`
	Source      string          `json:"source" db:"source"`
	SourceUID   string          `json:"source_uid" db:"source_uid"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	Status      StagedStatus    `json:"status" db:"status"`
	Outcome     *string         `json:"outcome,omitempty" db:"outcome"`
	BusinessID  *string         `json:"business_id,omitempty" db:"business_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty" db:"processed_at"`
}
