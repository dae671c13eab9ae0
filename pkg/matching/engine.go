package matching

import (
	"github.com/Ramsey-B/camellia/pkg/models"
)

// Engine applies the dedupe rules to a candidate and a pre-filtered pool of existing records.
// It is pure: no I/O and no logging, so it can run inside any transaction or dry run.
type Engine struct {
	thresholds Thresholds
}

func NewEngine(thresholds Thresholds) *Engine {
	return &Engine{thresholds: thresholds}
}

func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// FindMatch returns the first pool record the candidate matches, or nil when the candidate is a
// new business. Pool order decides between several matching records.
func (e *Engine) FindMatch(candidate models.Candidate, pool []models.Business) *models.Match {
	for i := range pool {
		if match, ok := e.Evaluate(candidate, pool[i]); ok {
			return &match
		}
	}
	return nil
}

// Evaluate checks one record against the rules in priority order:
//  1. equal normalized phone: high, phone_match
//  2. similar address and similar Korean name: high, address_name_match
//  3. similar address and similar English name: medium, address_name_en_match
//  4. same postal code and English name at the stricter threshold: low, name_zip_match
func (e *Engine) Evaluate(candidate models.Candidate, existing models.Business) (models.Match, bool) {
	match := models.Match{
		BusinessID: existing.ID,
		ClusterID:  existing.ClusterID,
	}
	if match.ClusterID == "" {
		match.ClusterID = existing.ID
	}

	phone := models.StringValue(existing.PhoneNormalized)
	if candidate.PhoneNormalized != "" && candidate.PhoneNormalized == phone {
		match.Confidence = models.ConfidenceHigh
		match.Reason = models.ReasonPhone
		return match, true
	}

	nameEn := models.StringValue(existing.NameEn)

	address := models.StringValue(existing.AddressNormalized)
	if candidate.AddressNormalized != "" && address != "" {
		match.AddressScore = AddressSimilarity(candidate.AddressNormalized, address)
		if match.AddressScore >= e.thresholds.Address {
			if candidate.NameKo != "" && existing.NameKo != "" {
				match.NameScore = NameSimilarity(candidate.NameKo, existing.NameKo)
				if match.NameScore >= e.thresholds.Name {
					match.Confidence = models.ConfidenceHigh
					match.Reason = models.ReasonAddressName
					return match, true
				}
			}
			if candidate.NameEn != "" && nameEn != "" {
				match.NameScore = NameSimilarity(candidate.NameEn, nameEn)
				if match.NameScore >= e.thresholds.Name {
					match.Confidence = models.ConfidenceMedium
					match.Reason = models.ReasonAddressNameEn
					return match, true
				}
			}
		}
	}

	postal := models.StringValue(existing.PostalCode)
	if candidate.PostalCode != "" && candidate.PostalCode == postal && candidate.NameEn != "" && nameEn != "" {
		match.NameScore = NameSimilarity(candidate.NameEn, nameEn)
		if match.NameScore >= e.thresholds.NameZip {
			match.Confidence = models.ConfidenceLow
			match.Reason = models.ReasonNameZip
			return match, true
		}
	}

	return models.Match{}, false
}

// AsCandidate views a stored record as a candidate so two records can be compared with the
// same rules, as the reconcile pass does.
func AsCandidate(b models.Business) models.Candidate {
	c := models.Candidate{
		NameKo:            b.NameKo,
		NameEn:            models.StringValue(b.NameEn),
		PhoneNormalized:   models.StringValue(b.PhoneNormalized),
		AddressNormalized: models.StringValue(b.AddressNormalized),
		City:              b.City,
		Region:            b.Region,
		PostalCode:        models.StringValue(b.PostalCode),
	}
	if len(b.SourceKeys) > 0 {
		c.SourceKey = b.SourceKeys[0]
	}
	if b.Latitude != nil && b.Longitude != nil {
		c.Coordinates = &models.Coordinates{Lat: *b.Latitude, Lng: *b.Longitude}
	}
	return c
}
