package normalizers

import "strings"

const DefaultCountryCode = "1"

// Phone carries the input as given and its country-coded form. Canonical is empty when the
// number cannot be resolved without guessing.
type Phone struct {
	Raw       string `json:"raw"`
	Canonical string `json:"canonical,omitempty"`
}

type PhoneNormalizer struct {
	CountryCode string
}

// NormalizePhone resolves a phone number against the default country code.
func NormalizePhone(raw string) Phone {
	return PhoneNormalizer{CountryCode: DefaultCountryCode}.Normalize(raw)
}

// Normalize keeps only digits. Ten digits are a domestic number and get the country code;
// the country code followed by ten digits (eleven in total for the default "1") passes
// through. Anything else, including seven-digit local numbers, has no canonical form.
func (p PhoneNormalizer) Normalize(raw string) Phone {
	phone := Phone{Raw: raw}

	cc := DigitsOnly(p.CountryCode)
	if cc == "" {
		cc = DefaultCountryCode
	}

	digits := DigitsOnly(raw)
	switch {
	case len(digits) == 10:
		phone.Canonical = "+" + cc + digits
	case len(digits) == len(cc)+10 && strings.HasPrefix(digits, cc):
		phone.Canonical = "+" + digits
	}
	return phone
}
