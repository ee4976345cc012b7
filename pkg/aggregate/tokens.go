package aggregate

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/commentpulse/commentpulse/pkg/comments"
)

// MaxTokens caps the token ranking.
const MaxTokens = 30

// minTokenLen drops very short tokens before ranking.
const minTokenLen = 3

// punctuation is the fixed set stripped from text before tokenizing.
const punctuation = `.,!?;:'"()[]{}<>@#&*-_=+~/\|`

// stopwords are excluded from the token ranking. Tokens shorter than
// minTokenLen are already dropped, so only longer words are listed.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "any": true,
	"has": true, "had": true, "his": true, "how": true, "who": true,
	"get": true, "got": true, "its": true, "this": true, "that": true,
	"with": true, "have": true, "from": true, "they": true, "been": true,
	"were": true, "what": true, "when": true, "will": true, "your": true,
	"them": true, "then": true, "than": true, "there": true, "their": true,
	"would": true, "about": true, "just": true, "like": true, "very": true,
	"really": true, "much": true, "more": true, "some": true, "only": true,
	"also": true, "into": true, "over": true, "such": true, "because": true,
	"could": true, "should": true, "being": true, "does": true, "doing": true,
}

// TokenEntry is one ranked token. Size is the normalized display weight in
// [1,5]; Rotate is visual decoration assigned by Decorate, not by the
// ranking itself.
type TokenEntry struct {
	Token  string  `json:"token"`
	Count  int     `json:"count"`
	Size   float64 `json:"size"`
	Rotate bool    `json:"rotate"`
}

// Tokenize lower-cases text, strips the fixed punctuation set and splits
// on whitespace, keeping tokens that pass the length and stopword filters.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, strings.ToLower(text))

	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if len([]rune(tok)) < minTokenLen || stopwords[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// TokenRanking tallies token frequency across all record text and returns
// the top MaxTokens entries, ordered by descending count and then
// lexicographically. Sizes are linearly interpolated into [1,5] by
// relative frequency; a flat distribution gets size 1 throughout.
func TokenRanking(records []comments.Record) []TokenEntry {
	freq := make(map[string]int)
	for _, r := range records {
		for _, tok := range Tokenize(r.Text) {
			freq[tok]++
		}
	}
	if len(freq) == 0 {
		return nil
	}

	entries := make([]TokenEntry, 0, len(freq))
	for tok, count := range freq {
		entries = append(entries, TokenEntry{Token: tok, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Token < entries[j].Token
	})
	if len(entries) > MaxTokens {
		entries = entries[:MaxTokens]
	}

	minCount := entries[len(entries)-1].Count
	maxCount := entries[0].Count
	for i := range entries {
		if maxCount == minCount {
			entries[i].Size = 1
		} else {
			ratio := float64(entries[i].Count-minCount) / float64(maxCount-minCount)
			entries[i].Size = 1 + 4*ratio
		}
	}

	return entries
}

// Decorate assigns the random rotation flag to ranked tokens. It is kept
// separate from TokenRanking so the ranking itself stays deterministic;
// pass a seeded rand for reproducible output in tests.
func Decorate(entries []TokenEntry, rng *rand.Rand) {
	for i := range entries {
		entries[i].Rotate = rng.Intn(2) == 1
	}
}
