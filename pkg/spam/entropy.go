package spam

import "math"

// MinEntropyBitsPerChar is the Shannon entropy floor below which content
// is rejected as low-entropy spam (spec.md §4.7).
const MinEntropyBitsPerChar = 2.0

// maxEntropySampleChars bounds the entropy computation to the first N
// characters of the content, matching spec.md §4.7.
const maxEntropySampleChars = 1000

// ShannonEntropy computes H = -Σ p(c)·log2(p(c)) over the first
// maxEntropySampleChars characters of s, in bits per character.
func ShannonEntropy(s string) float64 {
	runes := []rune(s)
	if len(runes) > maxEntropySampleChars {
		runes = runes[:maxEntropySampleChars]
	}
	if len(runes) == 0 {
		return 0
	}

	counts := make(map[rune]int, len(runes))
	for _, r := range runes {
		counts[r]++
	}

	n := float64(len(runes))
	var h float64
	for _, c := range counts {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}
