package sources

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/Ramsey-B/camellia/pkg/models"
	"github.com/Ramsey-B/camellia/pkg/normalizers"
)

type location struct {
	address    string
	city       string
	region     string
	postalCode string
}

// locate combines a free-text address with any structured city/region/zip fields. Structured
// fields win over what the parser extracts.
func locate(n *normalizers.Set, address, city, region, zip string) location {
	parsed := n.Address.Parse(address)
	loc := location{
		address:    parsed.Normalized,
		city:       parsed.City,
		region:     parsed.Region,
		postalCode: parsed.PostalCode,
	}
	if c := n.City(city); c != "" {
		loc.city = c
	}
	if strings.TrimSpace(region) != "" {
		loc.region = n.Region(region)
	}
	if loc.region == "" {
		loc.region = n.Region("")
	}
	if z := n.Normalize(normalizers.FieldPostalCode, zip); z != "" {
		loc.postalCode = z
	}
	return loc
}

var phoneSeparators = regexp.MustCompile(`[,;/|]|\s{2,}`)

// firstPhone returns the first number of a possibly multi-valued phone field that normalizes.
func firstPhone(n *normalizers.Set, raw string) normalizers.Phone {
	for _, part := range phoneSeparators.Split(raw, -1) {
		if p := n.Phone.Normalize(part); p.Canonical != "" {
			return normalizers.Phone{Raw: strings.TrimSpace(raw), Canonical: p.Canonical}
		}
	}
	return n.Phone.Normalize(strings.TrimSpace(raw))
}

var bilingualRe = regexp.MustCompile(`^(.*?)\s*[(\[]([^)\]]*)[)\]]\s*$`)

// splitName separates a listing title into its Korean and English names. Titles like
// "서울순두부 (Seoul Tofu)" carry both; otherwise the script decides.
func splitName(title string) (ko, en string) {
	title = normalizers.NormalizeName(title)
	if title == "" {
		return "", ""
	}
	if m := bilingualRe.FindStringSubmatch(title); m != nil && m[1] != "" && m[2] != "" {
		first, second := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		switch {
		case hasHangul(first) && !hasHangul(second):
			return first, second
		case hasHangul(second) && !hasHangul(first):
			return second, first
		}
	}
	if hasHangul(title) {
		return title, ""
	}
	return "", title
}

func hasHangul(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}

func coordinates(lat, lng *float64) *models.Coordinates {
	if lat == nil || lng == nil {
		return nil
	}
	if *lat == 0 && *lng == 0 {
		return nil
	}
	return &models.Coordinates{Lat: *lat, Lng: *lng}
}
