package comments

import (
	"errors"
	"time"
)

// RawItem is one item as delivered by the paginated source, before
// validation. Fields mirror the source wire format.
type RawItem struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	PublishedAt string `json:"publishedAt"`
	Topic       string `json:"topic,omitempty"`
	ReplyCount  int    `json:"replyCount,omitempty"`
}

// Validation errors for raw source items.
var (
	// ErrMissingID rejects an item without a source-assigned id.
	ErrMissingID = errors.New("item missing id")

	// ErrMissingText rejects an item without display text.
	ErrMissingText = errors.New("item missing text")
)

// Normalize validates a raw source item and maps it into a Record.
// Malformed items are rejected individually so one bad item never aborts
// a page. An unparseable publish time yields timestamp 0.
func Normalize(item RawItem) (Record, error) {
	if item.ID == "" {
		return Record{}, ErrMissingID
	}
	if item.Text == "" {
		return Record{}, ErrMissingText
	}

	topic := item.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	var ts int64
	if t, err := time.Parse(time.RFC3339, item.PublishedAt); err == nil {
		ts = t.Unix()
	}

	return Record{
		ID:        item.ID,
		Text:      item.Text,
		Timestamp: ts,
		Sentiment: SentimentNeutral,
		Topic:     topic,
		Symbols:   ExtractSymbols(item.Text),
	}, nil
}
