package merging

import (
	"time"

	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/google/uuid"
)

// MergePlan is the outcome of merging new information into an existing record.
type MergePlan struct {
	Result models.Business
	// Patch holds only the fields that change; empty when nothing changes.
	Patch       models.BusinessPatch
	Filled      []string
	KeysAdded   int
	ScoreBefore int
	ScoreAfter  int
	// FieldsCommitted is false when the fills did not raise the score and only provenance merged.
	FieldsCommitted bool
}

func (p MergePlan) Changed() bool {
	return !p.Patch.IsEmpty()
}

// incoming is the information another observation brings to a record.
type incoming struct {
	keys        models.SourceKeys
	nameKo      string
	nameEn      string
	phone       string
	address     string
	postalCode  string
	coordinates *models.Coordinates
	primaryID   string
	subID       string
}

// PlanMerge merges a matched candidate into an existing record. Fields are only ever filled
// where the record has none; the fills are kept when they raise the quality score, otherwise
// only the provenance grows. The score is always re-derived.
func PlanMerge(existing models.Business, c models.Candidate, cat models.Resolution) MergePlan {
	return planMerge(existing, incoming{
		keys:        models.SourceKeys{c.SourceKey},
		nameKo:      c.NameKo,
		nameEn:      c.NameEn,
		phone:       c.PhoneNormalized,
		address:     c.AddressNormalized,
		postalCode:  c.PostalCode,
		coordinates: c.Coordinates,
		primaryID:   cat.PrimaryID,
		subID:       cat.SubID,
	})
}

// Absorb merges a duplicate record into its cluster root with the same rules as PlanMerge.
func Absorb(root, duplicate models.Business) MergePlan {
	in := incoming{
		keys:       duplicate.SourceKeys,
		nameKo:     duplicate.NameKo,
		nameEn:     models.StringValue(duplicate.NameEn),
		phone:      models.StringValue(duplicate.PhoneNormalized),
		address:    models.StringValue(duplicate.AddressNormalized),
		postalCode: models.StringValue(duplicate.PostalCode),
		primaryID:  duplicate.PrimaryCategoryID,
		subID:      models.StringValue(duplicate.SubcategoryID),
	}
	if duplicate.Latitude != nil && duplicate.Longitude != nil {
		in.coordinates = &models.Coordinates{Lat: *duplicate.Latitude, Lng: *duplicate.Longitude}
	}
	return planMerge(root, in)
}

func planMerge(existing models.Business, in incoming) MergePlan {
	plan := MergePlan{ScoreBefore: QualityScore(existing)}

	keys := MergeSourceKeys(existing.SourceKeys, in.keys)
	plan.KeysAdded = len(keys) - len(existing.SourceKeys)

	fills := models.BusinessPatch{}
	var filled []string

	if existing.NameKo == "" && in.nameKo != "" {
		fills.NameKo = &in.nameKo
		filled = append(filled, "name_ko")
	}
	if existing.NameEn == nil && in.nameEn != "" {
		fills.NameEn = &in.nameEn
		filled = append(filled, "name_en")
	}
	if existing.PhoneNormalized == nil && in.phone != "" {
		fills.PhoneNormalized = &in.phone
		filled = append(filled, "phone")
	}
	if existing.AddressNormalized == nil && in.address != "" {
		fills.AddressNormalized = &in.address
		filled = append(filled, "address")
	}
	if existing.PostalCode == nil && in.postalCode != "" {
		fills.PostalCode = &in.postalCode
		filled = append(filled, "postal_code")
	}
	if existing.Latitude == nil && existing.Longitude == nil && in.coordinates != nil {
		lat, lng := in.coordinates.Lat, in.coordinates.Lng
		fills.Latitude, fills.Longitude = &lat, &lng
		filled = append(filled, "coordinates")
	}
	// a subcategory only makes sense under the primary the record already has
	if existing.SubcategoryID == nil && in.subID != "" && in.primaryID == existing.PrimaryCategoryID {
		fills.SubcategoryID = &in.subID
		filled = append(filled, "subcategory")
	}

	hypothetical := fills.Apply(existing)
	hypothetical.SourceKeys = keys

	result := existing
	result.SourceKeys = keys
	if len(filled) > 0 && QualityScore(hypothetical) > plan.ScoreBefore {
		result = hypothetical
		plan.Filled = filled
		plan.FieldsCommitted = true
		plan.Patch = fills
	}
	result.QualityScore = QualityScore(result)

	if plan.KeysAdded > 0 {
		plan.Patch.SourceKeys = &result.SourceKeys
	}
	if result.QualityScore != existing.QualityScore {
		score := result.QualityScore
		plan.Patch.QualityScore = &score
	}

	plan.Result = result
	plan.ScoreAfter = result.QualityScore
	return plan
}

// NewBusiness builds the record created when a candidate matches nothing. The record is its
// own cluster.
func NewBusiness(c models.Candidate, cat models.Resolution) models.Business {
	id := uuid.NewString()
	now := time.Now().UTC()

	b := models.Business{
		ID:                id,
		ClusterID:         id,
		SourceKeys:        models.SourceKeys{c.SourceKey},
		NameKo:            c.NameKo,
		NameEn:            models.OptionalString(c.NameEn),
		PhoneNormalized:   models.OptionalString(c.PhoneNormalized),
		AddressNormalized: models.OptionalString(c.AddressNormalized),
		City:              c.City,
		Region:            c.Region,
		PostalCode:        models.OptionalString(c.PostalCode),
		PrimaryCategoryID: cat.PrimaryID,
		SubcategoryID:     models.OptionalString(cat.SubID),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if c.Coordinates != nil {
		lat, lng := c.Coordinates.Lat, c.Coordinates.Lng
		b.Latitude, b.Longitude = &lat, &lng
	}
	b.QualityScore = QualityScore(b)
	return b
}
