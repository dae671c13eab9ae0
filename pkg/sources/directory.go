package sources

import (
	"strings"

	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/Ramsey-B/camellia/pkg/normalizers"
)

// Crawled Korean-American directory sources.
const (
	SourceRadioKorea = "radiokorea"
	SourceKoreaDaily = "koreadaily"
	SourceHeyKorean  = "heykorean"
)

var directorySources = map[string]bool{
	SourceRadioKorea: true,
	SourceKoreaDaily: true,
	SourceHeyKorean:  true,
}

func IsDirectorySource(source string) bool {
	return directorySources[source]
}

// DirectoryListing is a crawled directory entry. The dialects differ in which fields they
// fill: radiokorea puts both names in Title and may list several phones, koreadaily publishes
// numeric category codes, heykorean uses English category labels.
type DirectoryListing struct {
	Source       string   `json:"-"`
	ID           string   `json:"id" validate:"required"`
	Title        string   `json:"title,omitempty"`
	NameKo       string   `json:"name_ko,omitempty"`
	NameEn       string   `json:"name_en,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Address      string   `json:"address,omitempty"`
	City         string   `json:"city,omitempty"`
	State        string   `json:"state,omitempty"`
	Zip          string   `json:"zip,omitempty"`
	Category     string   `json:"category,omitempty"`
	CategoryCode string   `json:"category_code,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
}

func (d *DirectoryListing) Kind() Kind { return KindDirectory }

func (d *DirectoryListing) SourceID() models.SourceKey {
	return models.SourceKey{Source: d.Source, UID: d.ID}
}

func (d *DirectoryListing) sealed() {}

func (d *DirectoryListing) Candidate(n *normalizers.Set) models.Candidate {
	nameKo := normalizers.NormalizeName(d.NameKo)
	nameEn := normalizers.NormalizeName(d.NameEn)
	if nameKo == "" || nameEn == "" {
		ko, en := splitName(d.Title)
		if nameKo == "" {
			nameKo = ko
		}
		if nameEn == "" {
			nameEn = en
		}
	}

	phone := firstPhone(n, d.Phone)
	loc := locate(n, d.Address, d.City, d.State, d.Zip)

	label := strings.TrimSpace(d.Category)
	if label == "" {
		label = strings.TrimSpace(d.CategoryCode)
	}

	return models.Candidate{
		SourceKey:         d.SourceID(),
		NameKo:            nameKo,
		NameEn:            nameEn,
		PhoneRaw:          phone.Raw,
		PhoneNormalized:   phone.Canonical,
		AddressRaw:        strings.TrimSpace(d.Address),
		AddressNormalized: loc.address,
		City:              loc.city,
		Region:            loc.region,
		PostalCode:        loc.postalCode,
		RawCategoryLabel:  label,
		Coordinates:       coordinates(d.Lat, d.Lng),
	}
}
