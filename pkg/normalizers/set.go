package normalizers

import "strings"

// Set bundles the configured normalizers a source adapter needs.
type Set struct {
	Phone   PhoneNormalizer
	Address *AddressParser
}

func NewSet(countryCode, defaultRegion string) *Set {
	return &Set{
		Phone:   PhoneNormalizer{CountryCode: countryCode},
		Address: NewAddressParser(defaultRegion),
	}
}

// DefaultSet uses country code 1 and region CA.
func DefaultSet() *Set {
	return NewSet(DefaultCountryCode, "CA")
}

// City normalizes a city name given as its own field.
func (s *Set) City(raw string) string {
	return strings.ToUpper(NormalizeName(strings.Trim(raw, " ,.")))
}

// Region normalizes a state/province code given as its own field, defaulting when absent.
func (s *Set) Region(raw string) string {
	region := strings.ToUpper(strings.TrimSpace(raw))
	if region == "" {
		return s.Address.DefaultRegion
	}
	return region
}
