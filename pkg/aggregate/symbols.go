package aggregate

import (
	"sort"

	"github.com/commentpulse/commentpulse/pkg/comments"
)

// MaxSymbols caps the symbol ranking.
const MaxSymbols = 6

// SymbolEntry is one ranked pictographic symbol.
type SymbolEntry struct {
	Symbol string `json:"symbol"`
	Count  int    `json:"count"`
}

// SymbolRanking flattens the symbols extracted from all records, tallies
// frequency and returns the top MaxSymbols entries, ordered by descending
// count and then lexicographically.
func SymbolRanking(records []comments.Record) []SymbolEntry {
	freq := make(map[string]int)
	for _, r := range records {
		for _, sym := range r.Symbols {
			freq[sym]++
		}
	}
	if len(freq) == 0 {
		return nil
	}

	entries := make([]SymbolEntry, 0, len(freq))
	for sym, count := range freq {
		entries = append(entries, SymbolEntry{Symbol: sym, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Symbol < entries[j].Symbol
	})
	if len(entries) > MaxSymbols {
		entries = entries[:MaxSymbols]
	}

	return entries
}
