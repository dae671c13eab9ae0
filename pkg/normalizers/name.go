package normalizers

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName composes Hangul jamo into syllables (sources disagree on NFC/NFD),
// trims, and collapses internal whitespace. Case is kept; comparisons are case-insensitive.
func NormalizeName(s string) string {
	return collapseSpaces(norm.NFC.String(strings.TrimSpace(s)))
}
