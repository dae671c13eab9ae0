package models

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type MatchReason string

const (
	ReasonPhone         MatchReason = "phone_match"
	ReasonAddressName   MatchReason = "address_name_match"
	ReasonAddressNameEn MatchReason = "address_name_en_match"
	ReasonNameZip       MatchReason = "name_zip_match"
)

// Match is the decision that a candidate is an existing business.
type Match struct {
	BusinessID   string      `json:"business_id"`
	ClusterID    string      `json:"cluster_id"`
	Confidence   Confidence  `json:"confidence"`
	Reason       MatchReason `json:"reason"`
	NameScore    float64     `json:"name_score,omitempty"`
	AddressScore float64     `json:"address_score,omitempty"`
}
