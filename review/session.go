package review

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds all mutable state for one document review: the section map,
// per-section analysis caches, the three decision lists, pending comments,
// and chat history. Every accessor serializes through the session mutex so
// concurrent handler calls never interleave decisions inconsistently.
type Session struct {
	ID           string
	DocumentName string
	DocumentPath string
	CreatedAt    time.Time

	mu         sync.Mutex
	lastActive time.Time
	sections   *Sections

	analysisCache map[string][]FeedbackItem
	accepted      map[string][]FeedbackItem
	rejected      map[string][]FeedbackItem
	userAdded     map[string][]FeedbackItem
	pending       []PendingComment
	chatHistory   []ChatMessage
}

// NewSession creates a session owning the uploaded document's section map.
func NewSession(documentName, documentPath string, sections *Sections) *Session {
	now := time.Now()
	return &Session{
		ID:            uuid.NewString(),
		DocumentName:  documentName,
		DocumentPath:  documentPath,
		CreatedAt:     now,
		lastActive:    now,
		sections:      sections,
		analysisCache: make(map[string][]FeedbackItem),
		accepted:      make(map[string][]FeedbackItem),
		rejected:      make(map[string][]FeedbackItem),
		userAdded:     make(map[string][]FeedbackItem),
	}
}

func (s *Session) touch() {
	s.lastActive = time.Now()
}

// LastActive reports the session's most recent use.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SectionNames lists section names in detection order.
func (s *Session) SectionNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.sections.Names()
}

// Section returns the named section.
func (s *Session) Section(name string) (Section, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.sections.Get(name)
}

// CachedAnalysis returns the analysis result stored under key, if any.
func (s *Session) CachedAnalysis(key string) ([]FeedbackItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	items, ok := s.analysisCache[key]
	return items, ok
}

// StoreAnalysis caches an analysis result under key.
func (s *Session) StoreAnalysis(key string, items []FeedbackItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.analysisCache[key] = items
}

// Accept records an accepted item and queues its pending comment. The
// comment anchors at the section's first member paragraph; a section with no
// member paragraphs records the decision without queueing a comment.
func (s *Session) Accept(sectionName string, item FeedbackItem, compiled string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.accepted[sectionName] = append(s.accepted[sectionName], item)
	s.queuePending(sectionName, item, compiled, AuthorAI)
}

// Reject records a rejected item. Decisions are recorded, never undone.
func (s *Session) Reject(sectionName string, item FeedbackItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.rejected[sectionName] = append(s.rejected[sectionName], item)
}

// AddUser records a user-authored item as both user feedback and accepted
// feedback, and queues its pending comment under the user author tag.
func (s *Session) AddUser(sectionName string, item FeedbackItem, compiled string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.userAdded[sectionName] = append(s.userAdded[sectionName], item)
	s.accepted[sectionName] = append(s.accepted[sectionName], item)
	s.queuePending(sectionName, item, compiled, AuthorUser)
}

// queuePending appends a pending comment for item. Caller holds the mutex.
func (s *Session) queuePending(sectionName string, item FeedbackItem, compiled, author string) {
	sec, ok := s.sections.Get(sectionName)
	if !ok || len(sec.ParagraphIndices) == 0 {
		return
	}
	risk := item.RiskLevel
	if risk == "" {
		risk = RiskLow
	}
	s.pending = append(s.pending, PendingComment{
		Section:        sectionName,
		ParagraphIndex: sec.ParagraphIndices[0],
		Comment:        compiled,
		Type:           item.Type,
		RiskLevel:      risk,
		Author:         author,
		UserCreated:    item.UserCreated,
	})
}

// PendingComments returns a copy of the queued comments in decision order.
func (s *Session) PendingComments() []PendingComment {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return append([]PendingComment(nil), s.pending...)
}

// AppendChat records one user/assistant exchange.
func (s *Session) AppendChat(query, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	now := time.Now().Format(time.RFC3339)
	s.chatHistory = append(s.chatHistory,
		ChatMessage{Role: "user", Content: query, Timestamp: now},
		ChatMessage{Role: "assistant", Content: answer, Timestamp: now},
	)
}

// Stats summarizes the session's activity: cached feedback totals, risk
// distribution over cached items, and decision counts.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	var st Stats
	for _, items := range s.analysisCache {
		st.TotalFeedback += len(items)
		for _, item := range items {
			switch item.RiskLevel {
			case RiskHigh:
				st.HighRisk++
			case RiskMedium:
				st.MediumRisk++
			}
		}
	}
	for _, items := range s.accepted {
		st.Accepted += len(items)
	}
	for _, items := range s.userAdded {
		st.UserAdded += len(items)
	}
	return st
}
