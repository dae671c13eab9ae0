// Package normalizers turns raw listing fields into the canonical forms used for matching.
package normalizers

import (
	"strings"
	"unicode"
)

// Field names a listing field that has a canonical form.
type Field string

const (
	FieldName       Field = "name"
	FieldCity       Field = "city"
	FieldRegion     Field = "region"
	FieldPhone      Field = "phone"
	FieldAddress    Field = "address"
	FieldPostalCode Field = "postal_code"
	FieldDigits     Field = "digits"
)

// Normalize returns the canonical form of one raw field using the set's phone and address
// settings. Unknown fields are only trimmed.
func (s *Set) Normalize(field Field, raw string) string {
	switch field {
	case FieldName:
		return NormalizeName(raw)
	case FieldCity:
		return s.City(raw)
	case FieldRegion:
		return s.Region(raw)
	case FieldPhone:
		return s.Phone.Normalize(raw).Canonical
	case FieldAddress:
		return s.Address.Parse(raw).Normalized
	case FieldPostalCode:
		return NormalizeZipCode(strings.TrimSpace(raw))
	case FieldDigits:
		return DigitsOnly(raw)
	default:
		return strings.TrimSpace(raw)
	}
}

// DigitsOnly keeps only ASCII digits. Full-width digits from some Korean sources are folded.
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			result.WriteRune(r)
		case r >= '０' && r <= '９':
			result.WriteRune('0' + (r - '０'))
		}
	}
	return result.String()
}

// NormalizeZipCode returns the 5-digit US postal code, dropping a ZIP+4 extension.
func NormalizeZipCode(s string) string {
	digits := DigitsOnly(s)
	if len(digits) == 5 || len(digits) == 9 {
		return digits[:5]
	}
	return ""
}

func collapseSpaces(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
