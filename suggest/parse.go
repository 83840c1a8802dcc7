package suggest

import (
	"encoding/json"
	"regexp"

	"github.com/fabfab/review-agent/review"
)

type feedbackEnvelope struct {
	FeedbackItems []review.FeedbackItem `json:"feedback_items"`
}

// Providers wrap the JSON in prose or code fences often enough that a
// whole-response parse failure falls back to the outermost brace span.
var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// ParseFeedbackResponse extracts feedback items from a provider response.
// Any payload that cannot be parsed resolves to an empty list; parse errors
// never propagate.
func ParseFeedbackResponse(raw string) []review.FeedbackItem {
	var env feedbackEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err == nil {
		return env.FeedbackItems
	}
	if block := jsonBlockRe.FindString(raw); block != "" {
		if err := json.Unmarshal([]byte(block), &env); err == nil {
			return env.FeedbackItems
		}
	}
	return nil
}
