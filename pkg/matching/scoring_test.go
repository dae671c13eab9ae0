package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringSimilarity_KnownValues(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{a: "MARTHA", b: "MARHTA", want: 0.9611},
		{a: "DWAYNE", b: "DUANE", want: 0.84},
		{a: "DIXON", b: "DICKSONX", want: 0.8133},
		{a: "서울식당", b: "서울 식당", want: 0.9467},
		{a: "Kimbap World", b: "kimbap world", want: 1},
		{a: "김밥나라", b: "Kimbap World", want: 0},
		{a: "", b: "anything", want: 0},
		{a: "anything", b: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.want, StringSimilarity(tt.a, tt.b), 0.0005)
		})
	}
}

var similarityCorpus = []string{
	"서울식당", "서울 식당", "김밥나라", "Kimbap World", "kimbap world", "MARTHA", "MARHTA",
	"123 MAIN STREET ANYTOWN CA 90001", "456 MAIN STREET ANYTOWN CA 90001", "a", "ab", "ba",
	"abcabc", "cbacba", "Seoul Garden", "Soul Garden", "한의원", "한방 한의원", "x",
}

func TestStringSimilarity_Symmetric(t *testing.T) {
	for _, a := range similarityCorpus {
		for _, b := range similarityCorpus {
			assert.Equal(t, StringSimilarity(a, b), StringSimilarity(b, a), "%q vs %q", a, b)
		}
	}
}

func TestStringSimilarity_IdentityAndRange(t *testing.T) {
	for _, a := range similarityCorpus {
		assert.Equal(t, 1.0, StringSimilarity(a, a), a)
		for _, b := range similarityCorpus {
			s := StringSimilarity(a, b)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestAddressSimilarity_StreetNumberPreFilter(t *testing.T) {
	assert.Equal(t, 0.0, AddressSimilarity("123 MAIN STREET", "456 MAIN STREET"))
	assert.Equal(t, 1.0, AddressSimilarity("123 MAIN STREET", "123 MAIN STREET"))
	// only one side has a number, so the strings decide
	assert.Greater(t, AddressSimilarity("123 MAIN STREET", "MAIN STREET"), 0.0)
	assert.False(t, AddressesSimilar("123 MAIN STREET", "456 MAIN STREET", 0.1))
	assert.True(t, AddressesSimilar("123 MAIN STREET ANYTOWN", "123 MAIN STREET ANYTOWN CA", 0.85))
}

func TestNamesSimilar(t *testing.T) {
	th := DefaultThresholds()
	assert.True(t, NamesSimilar("서울식당", "서울 식당", th.Name))
	assert.True(t, NamesSimilar("서울식당", "서울식당", th.Name))
	assert.False(t, NamesSimilar("서울식당", "부산횟집", th.Name))
	assert.False(t, NamesSimilar("", "", th.Name))
}

func TestPhoneticKey(t *testing.T) {
	assert.Equal(t, PhoneticKey("Seoul Garden"), PhoneticKey("Soul Garden"))
	assert.Equal(t, PhoneticKey("Kimbap House"), PhoneticKey("The Kimbap House Inc."))
	assert.NotEqual(t, PhoneticKey("Seoul Garden"), PhoneticKey("Busan Kitchen"))
	assert.NotEmpty(t, PhoneticKey("Seoul Garden"))
	assert.Empty(t, PhoneticKey("김밥나라"))
}

func TestLevenshtein(t *testing.T) {
	assert.InDelta(t, 0.5714, Levenshtein("kitten", "sitting"), 0.0005)
	assert.Equal(t, 1.0, Levenshtein("", ""))
	assert.InDelta(t, 0.8, Levenshtein("서울 식당", "서울식당"), 0.0005)
}
