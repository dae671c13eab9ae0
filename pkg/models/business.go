package models

import "time"

// Business is the durable, deduplicated record of a real-world business.
type Business struct {
	ID                string     `json:"id" db:"id"`
	ClusterID         string     `json:"cluster_id" db:"cluster_id"`
	SourceKeys        SourceKeys `json:"source_keys" db:"source_keys"`
	NameKo            string     `json:"name_ko" db:"name_ko"`
	NameEn            *string    `json:"name_en,omitempty" db:"name_en"`
	PhoneNormalized   *string    `json:"phone_normalized,omitempty" db:"phone_normalized"`
	AddressNormalized *string    `json:"address_normalized,omitempty" db:"address_normalized"`
	City              string     `json:"city" db:"city"`
	Region            string     `json:"region" db:"region"`
	PostalCode        *string    `json:"postal_code,omitempty" db:"postal_code"`
	Latitude          *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude         *float64   `json:"longitude,omitempty" db:"longitude"`
	PrimaryCategoryID string     `json:"primary_category_id" db:"primary_category_id"`
	SubcategoryID     *string    `json:"subcategory_id,omitempty" db:"subcategory_id"`
	QualityScore      int        `json:"quality_score" db:"quality_score"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// IsCanonical reports whether the record represents its own cluster.
func (b Business) IsCanonical() bool {
	return b.ClusterID == "" || b.ClusterID == b.ID
}

// BusinessPatch is a partial update. Nil fields are left untouched.
type BusinessPatch struct {
	ClusterID         *string     `json:"cluster_id,omitempty"`
	SourceKeys        *SourceKeys `json:"source_keys,omitempty"`
	NameKo            *string     `json:"name_ko,omitempty"`
	NameEn            *string     `json:"name_en,omitempty"`
	PhoneNormalized   *string     `json:"phone_normalized,omitempty"`
	AddressNormalized *string     `json:"address_normalized,omitempty"`
	PostalCode        *string     `json:"postal_code,omitempty"`
	Latitude          *float64    `json:"latitude,omitempty"`
	Longitude         *float64    `json:"longitude,omitempty"`
	SubcategoryID     *string     `json:"subcategory_id,omitempty"`
	QualityScore      *int        `json:"quality_score,omitempty"`
}

func (p BusinessPatch) IsEmpty() bool {
	return p == BusinessPatch{}
}

// Apply returns b with the patch's non-nil fields written over it.
func (p BusinessPatch) Apply(b Business) Business {
	if p.ClusterID != nil {
		b.ClusterID = *p.ClusterID
	}
	if p.SourceKeys != nil {
		b.SourceKeys = append(SourceKeys(nil), (*p.SourceKeys)...)
	}
	if p.NameKo != nil {
		b.NameKo = *p.NameKo
	}
	if p.NameEn != nil {
		b.NameEn = p.NameEn
	}
	if p.PhoneNormalized != nil {
		b.PhoneNormalized = p.PhoneNormalized
	}
	if p.AddressNormalized != nil {
		b.AddressNormalized = p.AddressNormalized
	}
	if p.PostalCode != nil {
		b.PostalCode = p.PostalCode
	}
	if p.Latitude != nil {
		b.Latitude = p.Latitude
	}
	if p.Longitude != nil {
		b.Longitude = p.Longitude
	}
	if p.SubcategoryID != nil {
		b.SubcategoryID = p.SubcategoryID
	}
	if p.QualityScore != nil {
		b.QualityScore = *p.QualityScore
	}
	return b
}

// StringValue dereferences an optional string column.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// OptionalString maps "" to nil.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
