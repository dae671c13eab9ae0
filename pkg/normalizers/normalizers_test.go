package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		canonical string
	}{
		{name: "formatted domestic", raw: "(213) 555-1234", canonical: "+12135551234"},
		{name: "dotted domestic", raw: "213.555.1234", canonical: "+12135551234"},
		{name: "with country code", raw: "1-213-555-1234", canonical: "+12135551234"},
		{name: "already canonical", raw: "+12135551234", canonical: "+12135551234"},
		{name: "full-width digits", raw: "２１３-５５５-１２３４", canonical: "+12135551234"},
		{name: "local seven digits", raw: "555-1234", canonical: ""},
		{name: "eleven digits wrong prefix", raw: "82 10 1234 5678", canonical: ""},
		{name: "empty", raw: "", canonical: ""},
		{name: "garbage", raw: "call us!", canonical: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePhone(tt.raw)
			assert.Equal(t, tt.canonical, got.Canonical)
			assert.Equal(t, tt.raw, got.Raw)
		})
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	inputs := []string{"(213) 555-1234", "555-1234", "+1 (213) 555-1234", "", "12345678901234"}
	for _, in := range inputs {
		first := NormalizePhone(in)
		assert.Equal(t, first, NormalizePhone(first.Raw), in)
		if first.Canonical != "" {
			assert.Equal(t, first.Canonical, NormalizePhone(first.Canonical).Canonical, in)
		}
	}
}

func TestPhoneNormalizer_OtherCountryCode(t *testing.T) {
	p := PhoneNormalizer{CountryCode: "82"}
	assert.Equal(t, "+820212345678", p.Normalize("0212345678").Canonical)
	assert.Equal(t, "+821012345678", p.Normalize("82 10 1234 5678").Canonical)
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "street abbreviation", raw: "123 Main St", want: "123 MAIN STREET"},
		{name: "commas and city", raw: "123 Main St, Anytown, CA 90001", want: "123 MAIN STREET ANYTOWN CA 90001"},
		{name: "already expanded", raw: "123 Main Street Anytown CA 90001", want: "123 MAIN STREET ANYTOWN CA 90001"},
		{name: "suite stripped", raw: "3600 Wilshire Blvd Ste 200", want: "3600 WILSHIRE BOULEVARD"},
		{name: "hash unit stripped", raw: "3600 Wilshire Blvd. #1205", want: "3600 WILSHIRE BOULEVARD"},
		{name: "spaced hash unit", raw: "3600 Wilshire Blvd # 1205", want: "3600 WILSHIRE BOULEVARD"},
		{name: "apartment", raw: "10 Elm Ave Apt 4B", want: "10 ELM AVENUE"},
		{name: "ordinal floor", raw: "500 S Western Ave 2nd Floor", want: "500 SOUTH WESTERN AVENUE"},
		{name: "directionals", raw: "3200 W 6th St", want: "3200 WEST 6TH STREET"},
		{name: "region before zip kept", raw: "1 Harbor Ct, Stamford, CT 06901", want: "1 HARBOR COURT STAMFORD CT 06901"},
		{name: "trailing punctuation", raw: "  123   main st.  ", want: "123 MAIN STREET"},
		{name: "empty", raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAddress(tt.raw))
		})
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Address
	}{
		{
			name: "city region zip",
			raw:  "3600 Wilshire Blvd #500, Los Angeles, CA 90010",
			want: Address{Normalized: "3600 WILSHIRE BOULEVARD LOS ANGELES CA 90010", City: "LOS ANGELES", Region: "CA", PostalCode: "90010"},
		},
		{
			name: "zip plus four",
			raw:  "123 Main St, Anytown, CA 90001-1234",
			want: Address{Normalized: "123 MAIN STREET ANYTOWN CA 90001-1234", City: "ANYTOWN", Region: "CA", PostalCode: "90001"},
		},
		{
			name: "no commas falls back to known cities",
			raw:  "3200 W 6th St Los Angeles CA 90020",
			want: Address{Normalized: "3200 WEST 6TH STREET LOS ANGELES CA 90020", City: "LOS ANGELES", Region: "CA", PostalCode: "90020"},
		},
		{
			name: "longest known city wins",
			raw:  "1 Main St La Palma",
			want: Address{Normalized: "1 MAIN STREET LA PALMA", City: "LA PALMA", Region: "CA"},
		},
		{
			name: "other region",
			raw:  "2150 Lemoine Ave, Fort Lee, NJ 07024",
			want: Address{Normalized: "2150 LEMOINE AVENUE FORT LEE NJ 07024", City: "FORT LEE", Region: "NJ", PostalCode: "07024"},
		},
		{
			name: "unplaceable",
			raw:  "123 Main Street Anytown CA 90001",
			want: Address{Normalized: "123 MAIN STREET ANYTOWN CA 90001", Region: "CA", PostalCode: "90001"},
		},
		{
			name: "street type is not a region",
			raw:  "123 Main St 90001",
			want: Address{Normalized: "123 MAIN STREET 90001", PostalCode: "90001"},
		},
		{
			name: "city and region without zip",
			raw:  "Garden Grove, CA",
			want: Address{Normalized: "GARDEN GROVE CA", City: "GARDEN GROVE", Region: "CA"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAddress(tt.raw))
		})
	}
}

func TestStreetNumber(t *testing.T) {
	n, ok := StreetNumber("123 MAIN STREET")
	assert.True(t, ok)
	assert.Equal(t, "123", n)

	n, ok = StreetNumber("  0456 MAIN STREET")
	assert.True(t, ok)
	assert.Equal(t, "456", n)

	_, ok = StreetNumber("MAIN STREET")
	assert.False(t, ok)
}

func TestNormalizeName(t *testing.T) {
	decomposed := "\u1109\u1165\u110b\u116e\u11af"
	assert.Equal(t, "서울", NormalizeName(decomposed))
	assert.Equal(t, "서울 식당", NormalizeName("  서울   식당 "))
	assert.Equal(t, "Kimbap World", NormalizeName("Kimbap\tWorld"))
}

func TestSet_Normalize(t *testing.T) {
	s := DefaultSet()
	tests := []struct {
		field Field
		raw   string
		want  string
	}{
		{FieldPhone, "(213) 555-1234", "+12135551234"},
		{FieldPostalCode, " 90001-1234 ", "90001"},
		{FieldPostalCode, "9000", ""},
		{FieldCity, "los angeles,", "LOS ANGELES"},
		{FieldRegion, "", "CA"},
		{FieldDigits, "５４１１", "5411"},
		{FieldName, " 서울   식당", "서울 식당"},
		{Field("unknown"), "  kept  ", "kept"},
	}
	for _, tt := range tests {
		t.Run(string(tt.field)+"/"+tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Normalize(tt.field, tt.raw))
		})
	}
}

func TestSet(t *testing.T) {
	s := DefaultSet()
	assert.Equal(t, "LOS ANGELES", s.City(" Los Angeles, "))
	assert.Equal(t, "CA", s.Region(""))
	assert.Equal(t, "NY", s.Region("ny"))
}
