package dialog

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Canonical resolver threshold. The looser value is for offline tooling
// (conciergectl duplicate scans), never for in-conversation resolution.
const (
	FuzzyThreshold      = 0.85
	LooseFuzzyThreshold = 0.70
)

// NormalizeName lowercases and collapses internal whitespace.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Similarity returns a ratio in [0,1] between two names after normalization.
// 1 means identical; 0 means nothing in common.
func Similarity(a, b string) float64 {
	a, b = NormalizeName(a), NormalizeName(b)
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
