// Package aggregate derives the display projections from a run's record
// set. Every projection is a pure function, recomputed in full on each
// call; nothing here mutates the input records.
package aggregate

import (
	"sort"

	"github.com/commentpulse/commentpulse/pkg/comments"
)

// BinWidth is the fixed time-series bucket width in seconds.
const BinWidth = 30

// Bin is one time-series bucket. Start is the left-aligned bin start in
// epoch seconds; Counts is exhaustive over the sentiment domain.
type Bin struct {
	Start  int64                      `json:"start"`
	Counts map[comments.Sentiment]int `json:"counts"`
}

// Projections bundles all five aggregate views over one record set.
type Projections struct {
	Sentiment map[comments.Sentiment]int            `json:"sentiment"`
	Series    []Bin                                 `json:"series"`
	Topics    map[string]map[comments.Sentiment]int `json:"topics"`
	Tokens    []TokenEntry                          `json:"tokens"`
	Symbols   []SymbolEntry                         `json:"symbols"`
}

// Compute recomputes all five projections from scratch.
func Compute(records []comments.Record) Projections {
	return Projections{
		Sentiment: SentimentCounts(records),
		Series:    TimeSeries(records),
		Topics:    TopicMatrix(records),
		Tokens:    TokenRanking(records),
		Symbols:   SymbolRanking(records),
	}
}

func emptyCounts() map[comments.Sentiment]int {
	counts := make(map[comments.Sentiment]int, len(comments.Sentiments))
	for _, s := range comments.Sentiments {
		counts[s] = 0
	}
	return counts
}

// SentimentCounts tallies sentiment over the full three-way domain. All
// three keys are always present; unrecognized values were already
// defaulted to neutral at normalization time.
func SentimentCounts(records []comments.Record) map[comments.Sentiment]int {
	counts := emptyCounts()
	for _, r := range records {
		counts[comments.NormalizeSentiment(string(r.Sentiment))]++
	}
	return counts
}

// TimeSeries buckets records into 30-second left-aligned bins and tallies
// per-bin sentiment. Records without a resolvable timestamp (Timestamp 0,
// set at normalization time) are dropped from this projection only. Bins
// are sorted ascending by start.
func TimeSeries(records []comments.Record) []Bin {
	byStart := make(map[int64]map[comments.Sentiment]int)
	for _, r := range records {
		if r.Timestamp == 0 {
			continue
		}
		start := binStart(r.Timestamp)
		if byStart[start] == nil {
			byStart[start] = emptyCounts()
		}
		byStart[start][comments.NormalizeSentiment(string(r.Sentiment))]++
	}

	bins := make([]Bin, 0, len(byStart))
	for start, counts := range byStart {
		bins = append(bins, Bin{Start: start, Counts: counts})
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Start < bins[j].Start })

	return bins
}

// binStart returns the floor-aligned bin start for ts. Integer division
// truncates toward zero, so negative timestamps need the extra step down.
func binStart(ts int64) int64 {
	start := (ts / BinWidth) * BinWidth
	if ts < 0 && ts%BinWidth != 0 {
		start -= BinWidth
	}
	return start
}

// TopicMatrix groups records by topic and tallies sentiment per group.
// Only observed topics appear; there is no implicit zero row.
func TopicMatrix(records []comments.Record) map[string]map[comments.Sentiment]int {
	matrix := make(map[string]map[comments.Sentiment]int)
	for _, r := range records {
		topic := r.Topic
		if topic == "" {
			topic = comments.DefaultTopic
		}
		if matrix[topic] == nil {
			matrix[topic] = emptyCounts()
		}
		matrix[topic][comments.NormalizeSentiment(string(r.Sentiment))]++
	}
	return matrix
}
