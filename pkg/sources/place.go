package sources

import (
	"regexp"
	"strings"

	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/Ramsey-B/camellia/pkg/normalizers"
)

type PlaceLocation struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type PlaceGeometry struct {
	Location PlaceLocation `json:"location"`
}

// PlaceResult is a Places-style search result.
type PlaceResult struct {
	Source             string        `json:"-"`
	PlaceID            string        `json:"place_id" validate:"required"`
	Name               string        `json:"name,omitempty"`
	FormattedAddress   string        `json:"formatted_address,omitempty"`
	FormattedPhone     string        `json:"formatted_phone_number,omitempty"`
	InternationalPhone string        `json:"international_phone_number,omitempty"`
	Geometry           PlaceGeometry `json:"geometry"`
	Types              []string      `json:"types,omitempty"`
}

var countrySuffixRe = regexp.MustCompile(`(?i),\s*(usa|united states)\s*$`)

// genericPlaceTypes say nothing about what a business does.
var genericPlaceTypes = map[string]bool{
	"point_of_interest": true,
	"establishment":     true,
	"premise":           true,
	"food":              true,
	"store":             true,
	"health":            true,
}

func (p *PlaceResult) Kind() Kind { return KindPlace }

func (p *PlaceResult) SourceID() models.SourceKey {
	return models.SourceKey{Source: p.Source, UID: p.PlaceID}
}

func (p *PlaceResult) sealed() {}

func (p *PlaceResult) Candidate(n *normalizers.Set) models.Candidate {
	nameKo, nameEn := splitName(p.Name)

	phone := n.Phone.Normalize(p.InternationalPhone)
	if phone.Canonical == "" {
		phone = n.Phone.Normalize(p.FormattedPhone)
	}

	loc := locate(n, countrySuffixRe.ReplaceAllString(p.FormattedAddress, ""), "", "", "")

	return models.Candidate{
		SourceKey:         p.SourceID(),
		NameKo:            nameKo,
		NameEn:            nameEn,
		PhoneRaw:          phone.Raw,
		PhoneNormalized:   phone.Canonical,
		AddressRaw:        strings.TrimSpace(p.FormattedAddress),
		AddressNormalized: loc.address,
		City:              loc.city,
		Region:            loc.region,
		PostalCode:        loc.postalCode,
		RawCategoryLabel:  p.categoryLabel(),
		Coordinates:       coordinates(p.Geometry.Location.Lat, p.Geometry.Location.Lng),
	}
}

// categoryLabel is the first specific place type, falling back to the first type at all.
func (p *PlaceResult) categoryLabel() string {
	for _, t := range p.Types {
		if !genericPlaceTypes[t] {
			return t
		}
	}
	if len(p.Types) > 0 {
		return p.Types[0]
	}
	return ""
}
