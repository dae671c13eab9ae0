package sources

import (
	"strings"

	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/Ramsey-B/camellia/pkg/normalizers"
)

// LicenseRow is a row of a municipal business-license feed. Rows carry no phone and are
// categorized by NAICS code.
type LicenseRow struct {
	Source            string   `json:"-"`
	AccountNumber     string   `json:"location_account" validate:"required"`
	DBAName           string   `json:"dba_name,omitempty"`
	BusinessName      string   `json:"business_name,omitempty"`
	StreetAddress     string   `json:"street_address,omitempty"`
	City              string   `json:"city,omitempty"`
	State             string   `json:"state,omitempty"`
	ZipCode           string   `json:"zip_code,omitempty"`
	NAICS             string   `json:"naics,omitempty"`
	NAICSDescription  string   `json:"primary_naics_description,omitempty"`
	Latitude          *float64 `json:"latitude,omitempty"`
	Longitude         *float64 `json:"longitude,omitempty"`
	LocationStartDate string   `json:"location_start_date,omitempty"`
}

func (l *LicenseRow) Kind() Kind { return KindLicense }

func (l *LicenseRow) SourceID() models.SourceKey {
	return models.SourceKey{Source: l.Source, UID: l.AccountNumber}
}

func (l *LicenseRow) sealed() {}

func (l *LicenseRow) Candidate(n *normalizers.Set) models.Candidate {
	name := l.DBAName
	if strings.TrimSpace(name) == "" {
		name = l.BusinessName
	}
	nameKo, nameEn := splitName(name)

	loc := locate(n, l.StreetAddress, l.City, l.State, l.ZipCode)

	label := normalizers.DigitsOnly(l.NAICS)
	if label == "" {
		label = strings.TrimSpace(l.NAICSDescription)
	}

	return models.Candidate{
		SourceKey:         l.SourceID(),
		NameKo:            nameKo,
		NameEn:            nameEn,
		AddressRaw:        strings.TrimSpace(l.StreetAddress),
		AddressNormalized: loc.address,
		City:              loc.city,
		Region:            loc.region,
		PostalCode:        loc.postalCode,
		RawCategoryLabel:  label,
		Coordinates:       coordinates(l.Latitude, l.Longitude),
	}
}
