package models

type CategoryLevel string

const (
	CategoryLevelPrimary CategoryLevel = "primary"
	CategoryLevelSub     CategoryLevel = "sub"
)

// Category is one taxonomy node.
type Category struct {
	ID            string        `json:"id" db:"id"`
	Slug          string        `json:"slug" db:"slug" validate:"required"`
	DisplayNameKo string        `json:"display_name_ko" db:"display_name_ko"`
	DisplayNameEn string        `json:"display_name_en" db:"display_name_en"`
	Level         CategoryLevel `json:"level" db:"level" validate:"oneof=primary sub"`
	ParentSlug    *string       `json:"parent_slug,omitempty" db:"parent_slug"`
	SortOrder     int           `json:"sort_order" db:"sort_order"`
}

// ResolutionMethod records which resolver step produced a Resolution.
type ResolutionMethod string

const (
	ResolutionExact    ResolutionMethod = "exact"
	ResolutionSlug     ResolutionMethod = "slug"
	ResolutionContains ResolutionMethod = "contains"
	ResolutionFallback ResolutionMethod = "fallback"
)

// Resolution is the taxonomy assignment for one raw category label.
type Resolution struct {
	PrimaryID   string           `json:"primary_id"`
	PrimarySlug string           `json:"primary_slug"`
	SubID       string           `json:"sub_id,omitempty"`
	SubSlug     string           `json:"sub_slug,omitempty"`
	Matched     bool             `json:"matched"`
	Method      ResolutionMethod `json:"method"`
}
