// Package comments defines the normalized comment record produced by
// ingestion and consumed by the aggregation projections.
package comments

// Sentiment is the three-way classification applied to a record.
type Sentiment string

const (
	// SentimentPositive marks a positively classified record.
	SentimentPositive Sentiment = "positive"

	// SentimentNeutral marks a neutral record. Records default to neutral
	// until the classification service has run.
	SentimentNeutral Sentiment = "neutral"

	// SentimentNegative marks a negatively classified record.
	SentimentNegative Sentiment = "negative"
)

// Sentiments lists the full sentiment domain in display order.
// Projections over sentiment are exhaustive over this set.
var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative}

// Strength qualifies how pronounced a record's sentiment is.
type Strength string

const (
	// StrengthStrong marks a pronounced sentiment.
	StrengthStrong Strength = "strong"

	// StrengthWeak marks a mild sentiment.
	StrengthWeak Strength = "weak"
)

// DefaultTopic is assigned to records whose source item carries no topic.
const DefaultTopic = "General"

// Record is one normalized comment or reply.
//
// ID is unique within a single ingestion run. Timestamp is seconds since
// epoch; 0 means the source publish time could not be parsed, and such
// records are dropped from the time-series projection only.
type Record struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp int64     `json:"timestamp"`
	Sentiment Sentiment `json:"sentiment,omitempty"`
	Strength  Strength  `json:"strength,omitempty"`
	Topic     string    `json:"topic"`
	Symbols   []string  `json:"symbols,omitempty"`
}

// NormalizeSentiment maps a free-form sentiment label into the fixed
// three-way domain, defaulting anything unrecognized to neutral.
func NormalizeSentiment(label string) Sentiment {
	switch Sentiment(label) {
	case SentimentPositive, SentimentNegative:
		return Sentiment(label)
	default:
		return SentimentNeutral
	}
}
