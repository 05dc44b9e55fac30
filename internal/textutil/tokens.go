package textutil

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"if": true, "of": true, "to": true, "in": true, "on": true, "at": true,
	"by": true, "for": true, "with": true, "from": true, "as": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "been": true, "being": true,
	"it": true, "its": true, "this": true, "that": true, "these": true, "those": true,
	"we": true, "you": true, "they": true, "i": true, "he": true, "she": true,
	"our": true, "your": true, "their": true, "my": true, "me": true, "us": true,
	"will": true, "would": true, "can": true, "could": true, "do": true, "does": true,
	"did": true, "have": true, "has": true, "had": true, "so": true, "then": true,
	"than": true, "there": true, "here": true, "about": true, "into": true, "up": true,
	"out": true, "just": true, "also": true, "all": true, "any": true, "some": true,
	"let's": true, "lets": true, "s": true, "re": true, "hi": true, "hello": true,
}

// IsStopword reports whether a lower-case token carries no content
func IsStopword(tok string) bool {
	return stopwords[tok]
}

// Tokenize lower-cases text and splits it into word tokens.
// Hyphens and apostrophes inside a word are kept ("sign-off", "don't").
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-'")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ContentTokens returns Tokenize without stopwords
func ContentTokens(text string) []string {
	var out []string
	for _, tok := range Tokenize(text) {
		if !stopwords[tok] {
			out = append(out, tok)
		}
	}
	return out
}

// CollapseSpace trims text and folds every whitespace run into one space
func CollapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// NormalizeKey returns the comparison key of a text: its tokens joined by a space
func NormalizeKey(text string) string {
	return strings.Join(Tokenize(text), " ")
}

// ContainsPhrase reports whether the token sequence of phrase occurs
// contiguously in tokens
func ContainsPhrase(tokens []string, phrase string) bool {
	p := Tokenize(phrase)
	if len(p) == 0 || len(p) > len(tokens) {
		return false
	}
outer:
	for i := 0; i+len(p) <= len(tokens); i++ {
		for j := range p {
			if tokens[i+j] != p[j] {
				continue outer
			}
		}
		return true
	}
	return false
}

// MatchTerms returns the terms (single words or phrases) present in tokens,
// sorted and without duplicates
func MatchTerms(tokens []string, terms []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, term := range terms {
		key := strings.ToLower(strings.TrimSpace(term))
		if key == "" || seen[key] {
			continue
		}
		if ContainsPhrase(tokens, key) {
			seen[key] = true
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Jaccard returns |a ∩ b| / |a ∪ b| over token sets
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
	}
	inter := 0
	for t := range setA {
		if setB[t] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// LevenshteinSimilarity returns 1 - distance/maxLen over runes
func LevenshteinSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// TermFrequency counts tokens into a vector
func TermFrequency(tokens []string) map[string]float64 {
	tf := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}

// Cosine returns the cosine similarity of two sparse vectors, 0 when either is empty
func Cosine(a, b map[string]float64) float64 {
	var dot, na, nb float64
	for k, v := range a {
		na += v * v
		if w, ok := b[k]; ok {
			dot += v * w
		}
	}
	for _, w := range b {
		nb += w * w
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// SharedTokens returns the distinct tokens present in both lists, sorted
func SharedTokens(a, b []string) []string {
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	seen := make(map[string]bool)
	var out []string
	for _, t := range b {
		if setA[t] && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Round rounds to the given number of decimals
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
