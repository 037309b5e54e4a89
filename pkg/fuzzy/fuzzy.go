package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LevenshteinDistance calculates the edit distance between two strings
// This measures how many single-character edits (insertions, deletions, or substitutions)
// are required to change one string into another
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	// Two rolling rows instead of the full matrix
	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// Similarity returns a score in [0,1] where 1 means the normalized strings are identical.
// It is 1 - distance / length of the longer normalized string.
func Similarity(a, b string) float64 {
	a = Normalize(a)
	b = Normalize(b)
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(LevenshteinDistance(a, b))/float64(longest)
}

// ContainsKeyword reports whether keyword occurs in text as a word, a word prefix,
// or (for keywords of 6+ runes) within one edit of a word.
func ContainsKeyword(text, keyword string) bool {
	keyword = Normalize(keyword)
	if keyword == "" {
		return false
	}
	text = Normalize(text)

	// Multi-word keywords match as a phrase
	if strings.Contains(keyword, " ") {
		return strings.Contains(" "+text+" ", " "+keyword+" ")
	}

	tolerant := len([]rune(keyword)) >= 6
	for _, word := range strings.Fields(text) {
		if word == keyword || strings.HasPrefix(word, keyword) {
			return true
		}
		if tolerant && LevenshteinDistance(keyword, word) <= 1 {
			return true
		}
	}
	return false
}

// Normalize lowercases s, strips diacritics and punctuation, and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(removeAccents(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Helper functions

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

var strokeReplacer = strings.NewReplacer("đ", "d", "Đ", "D", "ł", "l", "Ł", "L", "ø", "o", "Ø", "O")

// removeAccents removes diacritical marks from a string
func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strokeReplacer.Replace(out)
}
