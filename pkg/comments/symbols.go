package comments

// Unicode ranges scanned for pictographic symbols. Covers the emoji
// blocks plus regional indicators, dingbats and misc symbols.
var symbolRanges = [][2]rune{
	{0x1F300, 0x1F5FF}, // misc symbols and pictographs
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F680, 0x1F6FF}, // transport and map
	{0x1F900, 0x1F9FF}, // supplemental symbols
	{0x1FA70, 0x1FAFF}, // symbols and pictographs extended-A
	{0x1F1E6, 0x1F1FF}, // regional indicators
	{0x2600, 0x26FF},   // misc symbols
	{0x2700, 0x27BF},   // dingbats
	{0x2B00, 0x2BFF},   // arrows and stars (includes ⭐)
}

// IsSymbol reports whether r falls in one of the scanned pictographic ranges.
func IsSymbol(r rune) bool {
	for _, rg := range symbolRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

// ExtractSymbols scans text and returns every pictographic rune as its own
// entry, in encounter order. Repeats are kept; the symbol-ranking
// projection counts them.
func ExtractSymbols(text string) []string {
	var symbols []string
	for _, r := range text {
		if IsSymbol(r) {
			symbols = append(symbols, string(r))
		}
	}
	return symbols
}
