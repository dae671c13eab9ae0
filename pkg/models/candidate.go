package models

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Candidate is one normalized observation of a business from exactly one source.
// Empty strings mean the field is absent.
type Candidate struct {
	SourceKey         SourceKey    `json:"source_key"`
	NameKo            string       `json:"name_ko,omitempty"`
	NameEn            string       `json:"name_en,omitempty"`
	PhoneRaw          string       `json:"phone_raw,omitempty"`
	PhoneNormalized   string       `json:"phone_normalized,omitempty"`
	AddressRaw        string       `json:"address_raw,omitempty"`
	AddressNormalized string       `json:"address_normalized,omitempty"`
	City              string       `json:"city,omitempty"`
	Region            string       `json:"region,omitempty"`
	PostalCode        string       `json:"postal_code,omitempty"`
	RawCategoryLabel  string       `json:"raw_category_label,omitempty"`
	Coordinates       *Coordinates `json:"coordinates,omitempty"`
}

// SkipReason is the terminal outcome of a candidate that never reaches the record store.
type SkipReason string

const (
	SkipMissingName            SkipReason = "missing_name"
	SkipMissingPhoneAndAddress SkipReason = "missing_phone_and_address"
	SkipMissingCity            SkipReason = "missing_city"
)

// Validate applies the ingestion gate. It returns the skip reason, or "" when the candidate may proceed.
func (c Candidate) Validate() SkipReason {
	if c.NameKo == "" && c.NameEn == "" {
		return SkipMissingName
	}
	if c.PhoneNormalized == "" && c.AddressNormalized == "" {
		return SkipMissingPhoneAndAddress
	}
	if c.City == "" {
		return SkipMissingCity
	}
	return ""
}
