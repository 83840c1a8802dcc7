package review

import "errors"

// Feedback item types.
const (
	TypeCritical   = "critical"
	TypeImportant  = "important"
	TypeSuggestion = "suggestion"
	TypePositive   = "positive"
)

// Comment author tags.
const (
	AuthorAI   = "AI Feedback"
	AuthorUser = "User Feedback"
)

// FeedbackItem is one piece of critique for a section, produced by a
// suggestion provider or authored directly by the user. The JSON field names
// are the provider wire contract. Items are immutable once a decision is
// recorded for them.
type FeedbackItem struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Suggestion  string   `json:"suggestion,omitempty"`
	Example     string   `json:"example,omitempty"`
	Questions   []string `json:"questions,omitempty"`
	HawkeyeRefs []int    `json:"hawkeye_refs,omitempty"`
	RiskLevel   string   `json:"risk_level,omitempty"`
	Confidence  float64  `json:"confidence,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
	UserCreated bool     `json:"user_created,omitempty"`
}

// PendingComment is a compiled comment awaiting injection into the output
// document, anchored to its section's first member paragraph.
type PendingComment struct {
	Section        string `json:"section"`
	ParagraphIndex int    `json:"paragraph_index"`
	Comment        string `json:"comment"`
	Type           string `json:"type"`
	RiskLevel      string `json:"risk_level"`
	Author         string `json:"author"`
	UserCreated    bool   `json:"user_created,omitempty"`
}

// ChatMessage is one turn of the per-session review chat.
type ChatMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Stats summarizes a session's review activity.
type Stats struct {
	TotalFeedback int `json:"total_feedback"`
	HighRisk      int `json:"high_risk"`
	MediumRisk    int `json:"medium_risk"`
	Accepted      int `json:"accepted"`
	UserAdded     int `json:"user_added"`
}

var (
	// ErrSessionNotFound reports an unknown or expired session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSectionNotFound reports a section name absent from the session's map.
	ErrSectionNotFound = errors.New("section not found")
	// ErrNoAcceptedFeedback reports a completion attempt with nothing to write.
	ErrNoAcceptedFeedback = errors.New("no accepted feedback")
	// ErrGenerateFailed reports that both native injection and the appendix
	// fallback failed.
	ErrGenerateFailed = errors.New("failed to generate reviewed document")
)
