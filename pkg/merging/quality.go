// Package merging maintains business clusters: quality scores, provenance and fill-null merges.
package merging

import "github.com/Ramsey-B/camellia/pkg/models"

// Field weights of the completeness score. Coordinates weigh most: they are the hardest field
// to source and drive location-based display.
const (
	WeightNameEn        = 10
	WeightPhone         = 20
	WeightAddress       = 15
	WeightCoordinates   = 25
	WeightPostalCode    = 10
	WeightMultiProvider = 20
)

// QualityScore derives the completeness score of a record from which fields are present.
func QualityScore(b models.Business) int {
	score := 0
	if models.StringValue(b.NameEn) != "" {
		score += WeightNameEn
	}
	if models.StringValue(b.PhoneNormalized) != "" {
		score += WeightPhone
	}
	if models.StringValue(b.AddressNormalized) != "" {
		score += WeightAddress
	}
	if b.Latitude != nil && b.Longitude != nil {
		score += WeightCoordinates
	}
	if models.StringValue(b.PostalCode) != "" {
		score += WeightPostalCode
	}
	if len(b.SourceKeys) > 1 {
		score += WeightMultiProvider
	}
	return score
}

// MergeSourceKeys is the union of a and b keyed by (source, uid), in order of first appearance.
func MergeSourceKeys(a, b models.SourceKeys) models.SourceKeys {
	out := make(models.SourceKeys, 0, len(a)+len(b))
	seen := make(map[models.SourceKey]bool, len(a)+len(b))
	for _, keys := range []models.SourceKeys{a, b} {
		for _, k := range keys {
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
