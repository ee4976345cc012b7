package aggregate

import (
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/commentpulse/commentpulse/pkg/comments"
)

func textRecord(id, text string) comments.Record {
	return comments.Record{ID: id, Text: text, Topic: comments.DefaultTopic}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "lowercases and strips punctuation",
			text: "Great MIX!! (really)",
			want: []string{"great", "mix"},
		},
		{
			name: "drops short tokens",
			text: "it is so good",
			want: []string{"good"},
		},
		{
			name: "drops stopwords",
			text: "this track and that drop",
			want: []string{"track", "drop"},
		},
		{
			name: "empty text",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tokenize(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTokenRankingOrderAndSize(t *testing.T) {
	records := []comments.Record{
		textRecord("1", "bass bass bass drop drop melody"),
	}

	entries := TokenRanking(records)

	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].Token != "bass" || entries[0].Count != 3 {
		t.Errorf("top entry = %+v, want bass x3", entries[0])
	}
	if entries[1].Token != "drop" || entries[2].Token != "melody" {
		t.Errorf("order = %v %v, want drop then melody", entries[1].Token, entries[2].Token)
	}

	// Linear interpolation into [1,5]: min count 1 -> 1, max count 3 -> 5.
	if entries[0].Size != 5 {
		t.Errorf("max frequency size = %v, want 5", entries[0].Size)
	}
	if entries[2].Size != 1 {
		t.Errorf("min frequency size = %v, want 1", entries[2].Size)
	}
	if entries[1].Size != 3 {
		t.Errorf("mid frequency size = %v, want 3", entries[1].Size)
	}
}

func TestTokenRankingFlatDistribution(t *testing.T) {
	entries := TokenRanking([]comments.Record{textRecord("1", "alpha bravo charlie")})

	for _, e := range entries {
		if e.Size != 1 {
			t.Errorf("size for %q = %v, want 1 when max == min", e.Token, e.Size)
		}
	}
}

func TestTokenRankingCap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		// Unique long tokens, repeated i+1 times each.
		for j := 0; j <= i; j++ {
			fmt.Fprintf(&sb, "token%02d ", i)
		}
	}

	entries := TokenRanking([]comments.Record{textRecord("1", sb.String())})

	if len(entries) != MaxTokens {
		t.Errorf("entries = %d, want capped at %d", len(entries), MaxTokens)
	}
	if entries[0].Token != "token49" {
		t.Errorf("top token = %q, want the most frequent", entries[0].Token)
	}
}

func TestTokenRankingExcludesShortAndStopwords(t *testing.T) {
	records := []comments.Record{
		textRecord("1", "ok so the and with you at it this wow"),
	}

	entries := TokenRanking(records)

	for _, e := range entries {
		if len([]rune(e.Token)) < minTokenLen {
			t.Errorf("token %q shorter than %d surfaced", e.Token, minTokenLen)
		}
		if stopwords[e.Token] {
			t.Errorf("stopword %q surfaced", e.Token)
		}
	}
	if len(entries) != 1 || entries[0].Token != "wow" {
		t.Errorf("entries = %v, want only wow", entries)
	}
}

func TestTokenRankingEmpty(t *testing.T) {
	if entries := TokenRanking(nil); entries != nil {
		t.Errorf("TokenRanking(nil) = %v, want nil", entries)
	}
}

func TestDecorateSeededReproducible(t *testing.T) {
	records := []comments.Record{textRecord("1", "alpha bravo charlie delta echo")}

	a := TokenRanking(records)
	b := TokenRanking(records)
	Decorate(a, rand.New(rand.NewSource(42)))
	Decorate(b, rand.New(rand.NewSource(42)))

	if !reflect.DeepEqual(a, b) {
		t.Error("Decorate with the same seed should be reproducible")
	}
}

func TestSymbolRankingCapAndOrder(t *testing.T) {
	records := []comments.Record{
		{ID: "1", Text: "t", Symbols: []string{"🔥", "🔥", "🔥", "⭐", "⭐", "🎵"}},
		{ID: "2", Text: "t", Symbols: []string{"😀", "😎", "🚀", "🌊", "☀"}},
	}

	entries := SymbolRanking(records)

	if len(entries) > MaxSymbols {
		t.Fatalf("entries = %d, want at most %d", len(entries), MaxSymbols)
	}
	if entries[0].Symbol != "🔥" || entries[0].Count != 3 {
		t.Errorf("top symbol = %+v, want 🔥 x3", entries[0])
	}
	if entries[1].Symbol != "⭐" || entries[1].Count != 2 {
		t.Errorf("second symbol = %+v, want ⭐ x2", entries[1])
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Count > entries[i-1].Count {
			t.Errorf("entries not sorted by descending count at %d", i)
		}
	}
}

func TestSymbolRankingEmpty(t *testing.T) {
	if entries := SymbolRanking([]comments.Record{{ID: "1", Text: "plain"}}); entries != nil {
		t.Errorf("SymbolRanking() = %v, want nil for no symbols", entries)
	}
}
