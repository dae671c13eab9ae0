// Package matching decides whether a newly observed listing is a business already on record.
package matching

import (
	"strings"
	"unicode"

	"github.com/Ramsey-B/camellia/pkg/normalizers"
	"github.com/antzucaro/matchr"
)

const (
	winklerPrefixLimit = 4
	winklerScaling     = 0.1
)

// Thresholds are the minimum similarities for each kind of comparison.
type Thresholds struct {
	Name    float64 `json:"name"`
	Address float64 `json:"address"`
	// NameZip is the stricter English-name threshold used when only the postal code agrees.
	NameZip float64 `json:"name_zip"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Name:    0.90,
		Address: 0.85,
		NameZip: 0.95,
	}
}

// StringSimilarity returns the case-insensitive Jaro-Winkler similarity of a and b in [0,1].
// Strings are compared rune by rune so Hangul syllables count as single characters.
func StringSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	if string(ra) == string(rb) {
		return 1
	}
	// a fixed argument order keeps the score symmetric
	if string(ra) > string(rb) {
		ra, rb = rb, ra
	}

	j := jaro(ra, rb)

	prefix := 0
	for prefix < len(ra) && prefix < len(rb) && prefix < winklerPrefixLimit && ra[prefix] == rb[prefix] {
		prefix++
	}

	return j + float64(prefix)*winklerScaling*(1-j)
}

func jaro(a, b []rune) float64 {
	window := max(len(a), len(b))/2 - 1
	if window < 0 {
		window = 0
	}

	aMatched := make([]bool, len(a))
	bMatched := make([]bool, len(b))

	matches := 0
	for i := range a {
		start := max(0, i-window)
		end := min(len(b), i+window+1)
		for j := start; j < end; j++ {
			if bMatched[j] || a[i] != b[j] {
				continue
			}
			aMatched[i] = true
			bMatched[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := range a {
		if !aMatched[i] {
			continue
		}
		for !bMatched[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3
}

// NameSimilarity compares two display names after Unicode and whitespace normalization.
func NameSimilarity(a, b string) float64 {
	return StringSimilarity(normalizers.NormalizeName(a), normalizers.NormalizeName(b))
}

func NamesSimilar(a, b string, threshold float64) bool {
	return NameSimilarity(a, b) >= threshold
}

// AddressSimilarity compares two normalized addresses. Two addresses whose leading street
// numbers are both present and differ score 0 whatever the rest of the string says.
func AddressSimilarity(a, b string) float64 {
	if na, ok := normalizers.StreetNumber(a); ok {
		if nb, ok := normalizers.StreetNumber(b); ok && na != nb {
			return 0
		}
	}
	return StringSimilarity(a, b)
}

func AddressesSimilar(a, b string, threshold float64) bool {
	return AddressSimilarity(a, b) >= threshold
}

var phoneticStopWords = map[string]bool{
	"THE": true, "INC": true, "LLC": true, "CORP": true, "CO": true, "LTD": true, "AND": true,
}

// PhoneticKey is a Double Metaphone code of the first two significant words of an English name.
// It groups spelling variants ("Seoul Garden", "Soul Garden") for reconcile blocking only; it
// never decides a match. Names without Latin letters have no key.
func PhoneticKey(name string) string {
	words := strings.FieldsFunc(strings.ToUpper(normalizers.NormalizeName(name)), func(r rune) bool {
		return r > unicode.MaxASCII || !unicode.IsLetter(r)
	})

	codes := make([]string, 0, 2)
	for _, word := range words {
		if phoneticStopWords[word] {
			continue
		}
		primary, _ := matchr.DoubleMetaphone(word)
		if primary == "" {
			continue
		}
		codes = append(codes, primary)
		if len(codes) == 2 {
			break
		}
	}
	return strings.Join(codes, "-")
}

// Levenshtein returns the rune edit-distance similarity of a and b in [0,1].
// Reconcile reports use it to show near misses next to the Jaro-Winkler score.
func Levenshtein(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance(ra, rb))/float64(longest)
}

func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)
	for j := range prevRow {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			row[j] = min(row[j-1]+1, prevRow[j]+1, prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}
