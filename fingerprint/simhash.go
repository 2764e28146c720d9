// Package fingerprint computes 64-bit SimHash fingerprints of rendered pages.
// Near-identical pages produce fingerprints with a small Hamming distance, so
// the metadata log can show whether a page changed between two runs.
package fingerprint

import (
	"fmt"
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"
)

// Text fingerprints the words of s. Case and punctuation are ignored and
// repeated words weigh more.
func Text(s string) uint64 {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return simhash(words)
}

// Hex renders a fingerprint as 16 lower-case hex digits.
func Hex(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

// Distance is the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether a and b are at most threshold bits apart.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

func simhash(tokens []string) uint64 {
	if len(tokens) == 0 {
		return 0
	}

	weights := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		weights[tok]++
	}

	var acc [64]int
	h := fnv.New64a()
	for tok, w := range weights {
		h.Reset()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		for bit := 0; bit < 64; bit++ {
			if sum&(1<<uint(bit)) != 0 {
				acc[bit] += w
			} else {
				acc[bit] -= w
			}
		}
	}

	var fp uint64
	for bit, v := range acc {
		if v > 0 {
			fp |= 1 << uint(bit)
		}
	}
	return fp
}
