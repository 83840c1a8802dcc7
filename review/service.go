package review

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/fabfab/review-agent/docx"
	"github.com/fabfab/review-agent/storage"
)

// Suggester is the external suggestion capability: critique one section, or
// answer a free-form review question. Implementations live in the suggest
// package; tests use the deterministic stub.
type Suggester interface {
	Suggest(ctx context.Context, sectionName, sectionText string) ([]FeedbackItem, error)
	Chat(ctx context.Context, query, contextInfo string) (string, error)
}

// Service orchestrates the review lifecycle: upload and segmentation,
// per-section analysis with caching, decision recording, and reviewed
// document generation with its injection-then-appendix state machine.
type Service struct {
	store     *storage.Store
	suggester Suggester
	registry  *Registry
	segmenter Segmenter
	logger    zerolog.Logger
}

func NewService(store *storage.Store, suggester Suggester, registry *Registry, segmenter Segmenter, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		suggester: suggester,
		registry:  registry,
		segmenter: segmenter,
		logger:    logger,
	}
}

// UploadResult reports a freshly created review session.
type UploadResult struct {
	SessionID    string
	DocumentName string
	SectionNames []string
}

// Upload persists the incoming document, segments it, and opens a session.
// Unreadable containers fail the upload with the reader's error.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	path, err := s.store.SaveUpload(filename, r)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	data, err := s.store.ReadUpload(path)
	if err != nil {
		return nil, err
	}
	doc, err := docx.OpenBytes(data)
	if err != nil {
		return nil, err
	}

	sections := s.segmenter.Segment(doc.Paragraphs)
	sess := NewSession(filepath.Base(path), path, sections)
	s.registry.Put(sess)

	s.logger.Info().Str("session", sess.ID).Str("document", sess.DocumentName).
		Int("sections", sections.Len()).Msg("document uploaded")

	return &UploadResult{
		SessionID:    sess.ID,
		DocumentName: sess.DocumentName,
		SectionNames: sections.Names(),
	}, nil
}

// Session resolves a session id.
func (s *Service) Session(id string) (*Session, error) {
	sess, ok := s.registry.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// SectionText returns a section's body text.
func (s *Service) SectionText(sessionID, sectionName string) (string, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return "", err
	}
	sec, ok := sess.Section(sectionName)
	if !ok {
		return "", ErrSectionNotFound
	}
	return sec.Body, nil
}

// Analyze critiques one section via the suggestion provider. Results are
// cached by section name plus content hash so identical content is never
// re-analyzed. Provider failures degrade to an empty feedback list; analysis
// is best-effort and never visibly fails.
func (s *Service) Analyze(ctx context.Context, sessionID, sectionName string) ([]FeedbackItem, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	sec, ok := sess.Section(sectionName)
	if !ok {
		return nil, ErrSectionNotFound
	}

	key := cacheKey(sectionName, sec.Body)
	if items, ok := sess.CachedAnalysis(key); ok {
		return items, nil
	}

	items, err := s.suggester.Suggest(ctx, sectionName, sec.Body)
	if err != nil {
		s.logger.Warn().Err(err).Str("session", sessionID).Str("section", sectionName).
			Msg("suggestion service failed, returning no feedback")
		items = nil
	}
	items = normalizeItems(items)

	sess.StoreAnalysis(key, items)
	return items, nil
}

// Accept records an accepted feedback item and queues its comment.
func (s *Service) Accept(sessionID, sectionName string, item FeedbackItem) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	if _, ok := sess.Section(sectionName); !ok {
		return ErrSectionNotFound
	}
	sess.Accept(sectionName, item, CompileComment(item))
	return nil
}

// Reject records a rejected feedback item.
func (s *Service) Reject(sessionID, sectionName string, item FeedbackItem) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	if _, ok := sess.Section(sectionName); !ok {
		return ErrSectionNotFound
	}
	sess.Reject(sectionName, item)
	return nil
}

// AddCustom records a user-authored feedback item. The item cites the
// checklist topic whose name exactly matches category, defaulting to topic 1;
// critical items classify Medium risk, everything else Low.
func (s *Service) AddCustom(sessionID, sectionName, feedbackType, category, description string) (FeedbackItem, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return FeedbackItem{}, err
	}
	if _, ok := sess.Section(sectionName); !ok {
		return FeedbackItem{}, ErrSectionNotFound
	}

	ref := ChecklistTopicNumber(category)
	if ref == 0 {
		ref = 1
	}
	risk := RiskLow
	if feedbackType == TypeCritical {
		risk = RiskMedium
	}

	item := FeedbackItem{
		ID:          uuid.NewString(),
		Type:        feedbackType,
		Category:    category,
		Description: description,
		HawkeyeRefs: []int{ref},
		RiskLevel:   risk,
		Timestamp:   time.Now().Format(time.RFC3339),
		UserCreated: true,
	}
	sess.AddUser(sectionName, item, CompileComment(item))
	return item, nil
}

// Chat answers a free-form question in the context of the session's current
// section and records the exchange.
func (s *Service) Chat(ctx context.Context, sessionID, query, currentSection string) (string, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return "", err
	}

	if currentSection == "" {
		currentSection = "None"
	}
	contextInfo := fmt.Sprintf("Current Section: %s\nDocument Type: Full Write-up", currentSection)

	answer, err := s.suggester.Chat(ctx, query, contextInfo)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	sess.AppendChat(query, answer)
	return answer, nil
}

// CompleteResult reports a generated reviewed document.
type CompleteResult struct {
	OutputName    string
	CommentsCount int
}

// Complete generates the reviewed document: native comment injection first,
// the appendix fallback second, failure only when both paths are exhausted.
func (s *Service) Complete(ctx context.Context, sessionID string) (*CompleteResult, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	pending := sess.PendingComments()
	if len(pending) == 0 {
		return nil, ErrNoAcceptedFeedback
	}

	outputName := s.outputName(sess.DocumentName)
	outputPath := s.store.OutputPath(outputName)

	comments := make([]docx.Comment, len(pending))
	for i, pc := range pending {
		comments[i] = docx.Comment{
			ParagraphIndex: pc.ParagraphIndex,
			Author:         pc.Author,
			Text:           pc.Comment,
		}
	}

	if err := docx.InjectComments(sess.DocumentPath, outputPath, comments); err != nil {
		s.logger.Warn().Err(err).Str("session", sessionID).
			Msg("native comment injection failed, falling back to appendix")

		appendix := make([]docx.AppendixComment, len(pending))
		for i, pc := range pending {
			appendix[i] = docx.AppendixComment{
				Comment: comments[i],
				Section: pc.Section,
				Type:    pc.Type,
				Risk:    pc.RiskLevel,
			}
		}
		if err := docx.WriteAppendix(sess.DocumentPath, outputPath, appendix); err != nil {
			s.logger.Error().Err(err).Str("session", sessionID).Msg("appendix fallback failed")
			return nil, fmt.Errorf("%w: %v", ErrGenerateFailed, err)
		}
	}

	s.logger.Info().Str("session", sessionID).Str("output", outputName).
		Int("comments", len(pending)).Msg("reviewed document generated")

	return &CompleteResult{OutputName: outputName, CommentsCount: len(pending)}, nil
}

// Stats summarizes session activity.
func (s *Service) Stats(sessionID string) (Stats, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return Stats{}, err
	}
	return sess.Stats(), nil
}

func (s *Service) outputName(documentName string) string {
	base := strings.TrimSuffix(documentName, ".docx")
	return fmt.Sprintf("reviewed_%s_%s.docx", base, time.Now().Format("20060102_150405"))
}

func cacheKey(sectionName, content string) string {
	sum := sha256.Sum256([]byte(content))
	return sectionName + "_" + hex.EncodeToString(sum[:])
}

// normalizeItems fills provider omissions: ids, checklist references from the
// keyword table, and risk level from the indicator table.
func normalizeItems(items []FeedbackItem) []FeedbackItem {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = ulid.Make().String()
		}
		if len(items[i].HawkeyeRefs) == 0 {
			items[i].HawkeyeRefs = LookupReferences(items[i].Category, items[i].Description)
		}
		if items[i].RiskLevel == "" {
			items[i].RiskLevel = ClassifyRisk(items[i])
		}
	}
	return items
}
