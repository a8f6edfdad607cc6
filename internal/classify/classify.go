// Package classify maps raw inbound SMS text to a coarse sentiment with a
// fixed confidence score.
package classify

import "strings"

// Sentiment is the coarse classification of an inbound reply.
type Sentiment string

const (
	Positive Sentiment = "POSITIVE"
	Negative Sentiment = "NEGATIVE"
	Neutral  Sentiment = "NEUTRAL"
)

// Result carries the sentiment and its confidence (0.0-1.0).
type Result struct {
	Sentiment  Sentiment
	Confidence float64
}

// Multi-character keywords match by substring containment, so suffixes
// and surrounding words still land ("nope" trips "no" - known and
// accepted). Single-character keywords ("y", "n") match only as the exact
// whole input, otherwise nearly every sentence would trip them.
var positiveKeywords = []string{
	"yes", "yeah", "yep", "yup", "done", "complete", "finished",
	"ok", "okay", "took", "taken", "check", "sure", "good", "great",
}

var negativeKeywords = []string{
	"no", "not", "cant", "didnt", "wont", "stop",
	"skip", "forgot", "missed",
}

var exactPositive = []string{"y"}
var exactNegative = []string{"n"}

// Classify lowercases, trims and strips non-alphanumerics (spaces kept),
// then tests the curated keyword sets. Negative takes precedence when
// both sets match: a false "completed" is worse than a false "missed"
// for a care reminder.
func Classify(raw string) Result {
	text := normalize(raw)

	if matches(text, negativeKeywords, exactNegative) {
		return Result{Sentiment: Negative, Confidence: 0.2}
	}
	if matches(text, positiveKeywords, exactPositive) {
		return Result{Sentiment: Positive, Confidence: 0.8}
	}
	return Result{Sentiment: Neutral, Confidence: 0.5}
}

func matches(text string, contains, exact []string) bool {
	if text == "" {
		return false
	}
	for _, kw := range contains {
		if strings.Contains(text, kw) {
			return true
		}
	}
	for _, kw := range exact {
		if text == kw {
			return true
		}
	}
	return false
}

func normalize(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
