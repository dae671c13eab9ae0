package normalizers

import (
	"regexp"
	"sort"
	"strings"
)

var (
	// unit markers followed by their identifier, e.g. "STE 200", "APT #4B"
	designators = map[string]bool{
		"APT": true, "APARTMENT": true, "UNIT": true, "STE": true, "SUITE": true,
		"FLOOR": true, "FLR": true, "RM": true, "ROOM": true, "BLDG": true, "BUILDING": true,
	}

	abbreviations = map[string]string{
		"ST":   "STREET",
		"AVE":  "AVENUE",
		"AV":   "AVENUE",
		"BLVD": "BOULEVARD",
		"DR":   "DRIVE",
		"RD":   "ROAD",
		"LN":   "LANE",
		"CT":   "COURT",
		"PL":   "PLACE",
		"PKWY": "PARKWAY",
		"HWY":  "HIGHWAY",
		"FWY":  "FREEWAY",
		"CIR":  "CIRCLE",
		"TER":  "TERRACE",
		"SQ":   "SQUARE",
		"TRL":  "TRAIL",
		"N":    "NORTH",
		"S":    "SOUTH",
		"E":    "EAST",
		"W":    "WEST",
		"NE":   "NORTHEAST",
		"NW":   "NORTHWEST",
		"SE":   "SOUTHEAST",
		"SW":   "SOUTHWEST",
	}

	unitIDRe    = regexp.MustCompile(`^#?[A-Z0-9][A-Z0-9-]*$`)
	ordinalRe   = regexp.MustCompile(`^\d+(ST|ND|RD|TH)$`)
	zipTokenRe  = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	streetNumRe = regexp.MustCompile(`^\s*(\d+)`)

	trailingZipRe    = regexp.MustCompile(`(?:^|[\s,])(\d{5})(?:-\d{4})?\s*$`)
	trailingRegionRe = regexp.MustCompile(`(?:^|[\s,])([A-Z]{2})[\s,]*$`)
	commaRegionRe    = regexp.MustCompile(`,\s*([A-Z]{2})\s*$`)
)

// NormalizeAddress produces the matching form of an address: uppercase, unit markers removed,
// street-type and directional abbreviations expanded, single spaced. Not meant for display.
func NormalizeAddress(raw string) string {
	tokens := addressTokens(raw)
	out := make([]string, 0, len(tokens))

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		next := ""
		if i+1 < len(tokens) {
			next = tokens[i+1]
		}

		switch {
		case designators[tok] && next != "" && unitIDRe.MatchString(next):
			i++
			continue
		case tok == "#" && next != "":
			i++
			continue
		case strings.HasPrefix(tok, "#") && len(tok) > 1:
			continue
		case ordinalRe.MatchString(tok) && (next == "FLOOR" || next == "FL" || next == "FLR"):
			i++
			continue
		}

		// a two-letter token right before the ZIP is the region, never a street type
		if usRegions[tok] && zipTokenRe.MatchString(next) {
			out = append(out, tok)
			continue
		}

		if full, ok := abbreviations[tok]; ok {
			tok = full
		}
		out = append(out, tok)
	}

	return strings.TrimRight(strings.Join(out, " "), ".,;:-# ")
}

func addressTokens(raw string) []string {
	upper := strings.ToUpper(NormalizeName(raw))
	upper = strings.NewReplacer(",", " ", ".", " ", ";", " ").Replace(upper)
	return strings.Fields(upper)
}

// StreetNumber returns the leading house number of an address, if any.
func StreetNumber(address string) (string, bool) {
	m := streetNumRe.FindStringSubmatch(address)
	if m == nil {
		return "", false
	}
	number := strings.TrimLeft(m[1], "0")
	if number == "" {
		number = "0"
	}
	return number, true
}

// Address is the parsed location of a listing. City is uppercase; an empty City means the
// listing could not be placed.
type Address struct {
	Normalized string `json:"normalized"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
}

type AddressParser struct {
	DefaultRegion string
	// KnownCities lists uppercase city names per region for the last-resort scan.
	KnownCities map[string][]string
}

func NewAddressParser(defaultRegion string) *AddressParser {
	return &AddressParser{
		DefaultRegion: strings.ToUpper(defaultRegion),
		KnownCities:   DefaultKnownCities,
	}
}

// ParseAddress parses with the package defaults.
func ParseAddress(raw string) Address {
	return defaultParser.Parse(raw)
}

var defaultParser = NewAddressParser("CA")

// Parse extracts the trailing "City, REGION ZIP" parts of a free-text address. The city comes
// from the comma segment before the region, or failing that from a scan of known city names.
func (p *AddressParser) Parse(raw string) Address {
	addr := Address{Normalized: NormalizeAddress(raw)}

	rest := strings.ToUpper(NormalizeName(raw))
	rest = strings.TrimRight(rest, ".,; ")

	if m := trailingZipRe.FindStringSubmatchIndex(rest); m != nil {
		addr.PostalCode = rest[m[2]:m[3]]
		rest = strings.TrimRight(rest[:m[0]], ", ")
		if r := trailingRegionRe.FindStringSubmatchIndex(rest); r != nil && usRegions[rest[r[2]:r[3]]] {
			addr.Region = rest[r[2]:r[3]]
			rest = rest[:r[0]]
		}
	} else if r := commaRegionRe.FindStringSubmatchIndex(rest); r != nil && usRegions[rest[r[2]:r[3]]] {
		addr.Region = rest[r[2]:r[3]]
		rest = rest[:r[0]]
	}
	rest = strings.TrimRight(rest, ", ")

	if addr.Region != "" {
		if idx := strings.LastIndex(rest, ","); idx >= 0 {
			segment := collapseSpaces(strings.Trim(rest[idx+1:], " ."))
			if segment != "" && !startsWithDigit(segment) {
				addr.City = segment
				return addr
			}
		}
	}

	region := addr.Region
	if region == "" {
		region = p.DefaultRegion
	}
	if city := p.scanKnownCity(rest, region); city != "" {
		addr.City = city
		if addr.Region == "" {
			addr.Region = region
		}
	}

	return addr
}

// scanKnownCity returns the longest known city of the region that occurs as whole words.
func (p *AddressParser) scanKnownCity(text, region string) string {
	haystack := " " + strings.Join(strings.Fields(strings.NewReplacer(",", " ", ".", " ").Replace(text)), " ") + " "

	cities := append([]string(nil), p.KnownCities[region]...)
	sort.SliceStable(cities, func(i, j int) bool { return len(cities[i]) > len(cities[j]) })

	for _, city := range cities {
		if strings.Contains(haystack, " "+city+" ") {
			return city
		}
	}
	return ""
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

var usRegions = func() map[string]bool {
	codes := strings.Fields(`AL AK AZ AR CA CO CT DE DC FL GA HI ID IL IN IA KS KY LA ME MD MA MI MN MS MO
		MT NE NV NH NJ NM NY NC ND OH OK OR PA RI SC SD TN TX UT VT VA WA WV WI WY PR GU VI`)
	set := make(map[string]bool, len(codes))
	for _, code := range codes {
		set[code] = true
	}
	return set
}()

// DefaultKnownCities covers the metro areas the crawled Korean directories list.
var DefaultKnownCities = map[string][]string{
	"CA": {
		"LOS ANGELES", "KOREATOWN", "GARDEN GROVE", "FULLERTON", "BUENA PARK", "IRVINE",
		"TORRANCE", "GARDENA", "GLENDALE", "LA CRESCENTA", "CERRITOS", "LA PALMA", "CYPRESS",
		"ANAHEIM", "SANTA ANA", "ROWLAND HEIGHTS", "DIAMOND BAR", "WALNUT", "CHINO HILLS",
		"LA MIRADA", "ARTESIA", "NORWALK", "LONG BEACH", "PASADENA", "BURBANK", "NORTHRIDGE",
		"VALENCIA", "SAN DIEGO", "SAN FRANCISCO", "OAKLAND", "SAN JOSE", "SANTA CLARA",
		"SUNNYVALE", "CUPERTINO", "FREMONT",
	},
	"NY": {"NEW YORK", "FLUSHING", "BAYSIDE", "QUEENS", "BROOKLYN", "LITTLE NECK"},
	"NJ": {"FORT LEE", "PALISADES PARK", "ENGLEWOOD CLIFFS", "LEONIA", "RIDGEFIELD"},
	"GA": {"ATLANTA", "DULUTH", "SUWANEE", "JOHNS CREEK", "DORAVILLE"},
	"WA": {"SEATTLE", "FEDERAL WAY", "LYNNWOOD", "TACOMA", "BELLEVUE"},
	"TX": {"DALLAS", "CARROLLTON", "HOUSTON", "AUSTIN"},
}
