package review

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabfab/review-agent/config"
	"github.com/fabfab/review-agent/docx/docxtest"
	"github.com/fabfab/review-agent/storage"
)

// countingSuggester returns canned feedback and records how often it is asked.
type countingSuggester struct {
	calls int
	items []FeedbackItem
	err   error
}

func (c *countingSuggester) Suggest(ctx context.Context, sectionName, sectionText string) ([]FeedbackItem, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return append([]FeedbackItem(nil), c.items...), nil
}

func (c *countingSuggester) Chat(ctx context.Context, query, contextInfo string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return "canned answer", nil
}

func newTestService(t *testing.T, sg Suggester) (*Service, *Registry) {
	t.Helper()
	dir := t.TempDir()
	store := storage.New(afero.NewOsFs(), filepath.Join(dir, "uploads"), filepath.Join(dir, "outputs"))
	require.NoError(t, store.Init())

	registry := NewRegistry(0)
	segmenter := Segmenter{
		StandardSections: config.DefaultStandardSections,
		ExcludedSections: config.DefaultExcludedSections,
		Logger:           zerolog.Nop(),
	}
	return NewService(store, sg, registry, segmenter, zerolog.Nop()), registry
}

func uploadFixture(t *testing.T, svc *Service) *UploadResult {
	t.Helper()
	data := docxtest.Build(docxtest.Doc{Paras: []docxtest.Para{
		docxtest.Bold("Background:"),
		docxtest.Plain("An appeal came in."),
		docxtest.Bold("Root Cause:"),
		docxtest.Plain("A process gap caused the enforcement error."),
	}})
	res, err := svc.Upload(context.Background(), "writeup.docx", bytes.NewReader(data))
	require.NoError(t, err)
	return res
}

// relslessDocx strips the document relationships part from the fixture. The
// reader accepts the result but comment injection cannot patch it, forcing
// the appendix fallback.
func relslessDocx(t *testing.T) []byte {
	t.Helper()
	src := docxtest.Build(docxtest.Doc{Paras: []docxtest.Para{
		docxtest.Bold("Background:"),
		docxtest.Plain("An appeal came in."),
	}})
	zr, err := zip.NewReader(bytes.NewReader(src), int64(len(src)))
	require.NoError(t, err)

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, f := range zr.File {
		if f.Name == "word/_rels/document.xml.rels" {
			continue
		}
		w, err := zw.Create(f.Name)
		require.NoError(t, err)
		rc, err := f.Open()
		require.NoError(t, err)
		_, err = io.Copy(w, rc)
		rc.Close()
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return out.Bytes()
}

func readZipPart(t *testing.T, path, name string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatalf("part %s not found in %s", name, path)
	return ""
}

func TestUploadSegmentsAndOpensSession(t *testing.T) {
	svc, registry := newTestService(t, &countingSuggester{})
	res := uploadFixture(t, svc)

	assert.Equal(t, "writeup.docx", res.DocumentName)
	assert.Equal(t, []string{"Background", "Root Cause"}, res.SectionNames)

	sess, ok := registry.Get(res.SessionID)
	require.True(t, ok)
	assert.Equal(t, res.SessionID, sess.ID)
}

func TestUploadRejectsUnreadableDocument(t *testing.T) {
	svc, _ := newTestService(t, &countingSuggester{})
	_, err := svc.Upload(context.Background(), "broken.docx", strings.NewReader("not a zip"))
	require.Error(t, err)
}

func TestSectionText(t *testing.T) {
	svc, _ := newTestService(t, &countingSuggester{})
	res := uploadFixture(t, svc)

	text, err := svc.SectionText(res.SessionID, "Background")
	require.NoError(t, err)
	assert.Equal(t, "An appeal came in.", text)

	_, err = svc.SectionText(res.SessionID, "Missing")
	assert.ErrorIs(t, err, ErrSectionNotFound)

	_, err = svc.SectionText("nope", "Background")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAnalyzeNormalizesAndCaches(t *testing.T) {
	sg := &countingSuggester{items: []FeedbackItem{
		{Type: TypeCritical, Category: "Process", Description: "fraud indicators in the investigation were ignored"},
	}}
	svc, _ := newTestService(t, sg)
	res := uploadFixture(t, svc)

	items, err := svc.Analyze(context.Background(), res.SessionID, "Background")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotEmpty(t, items[0].ID)
	assert.Equal(t, RiskHigh, items[0].RiskLevel)
	assert.Equal(t, []int{2}, items[0].HawkeyeRefs)

	again, err := svc.Analyze(context.Background(), res.SessionID, "Background")
	require.NoError(t, err)
	assert.Equal(t, items, again)
	assert.Equal(t, 1, sg.calls)
}

func TestAnalyzeDegradesOnProviderFailure(t *testing.T) {
	sg := &countingSuggester{err: errors.New("provider down")}
	svc, _ := newTestService(t, sg)
	res := uploadFixture(t, svc)

	items, err := svc.Analyze(context.Background(), res.SessionID, "Background")
	require.NoError(t, err)
	assert.Empty(t, items)

	// The empty result is cached like any other.
	_, err = svc.Analyze(context.Background(), res.SessionID, "Background")
	require.NoError(t, err)
	assert.Equal(t, 1, sg.calls)
}

func TestAcceptUnknownSection(t *testing.T) {
	svc, _ := newTestService(t, &countingSuggester{})
	res := uploadFixture(t, svc)

	err := svc.Accept(res.SessionID, "Missing", FeedbackItem{ID: "f1"})
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestAddCustomDefaults(t *testing.T) {
	svc, registry := newTestService(t, &countingSuggester{})
	res := uploadFixture(t, svc)

	item, err := svc.AddCustom(res.SessionID, "Background", TypeCritical, "Unknown Category", "missing escalation path")
	require.NoError(t, err)
	assert.True(t, item.UserCreated)
	assert.Equal(t, []int{1}, item.HawkeyeRefs)
	assert.Equal(t, RiskMedium, item.RiskLevel)
	assert.NotEmpty(t, item.ID)
	assert.NotEmpty(t, item.Timestamp)

	sess, _ := registry.Get(res.SessionID)
	pending := sess.PendingComments()
	require.Len(t, pending, 1)
	assert.Equal(t, AuthorUser, pending[0].Author)
}

func TestAddCustomMatchesChecklistCategory(t *testing.T) {
	svc, _ := newTestService(t, &countingSuggester{})
	res := uploadFixture(t, svc)

	item, err := svc.AddCustom(res.SessionID, "Background", TypeSuggestion, "Root Cause Analysis", "dig deeper")
	require.NoError(t, err)
	assert.Equal(t, []int{11}, item.HawkeyeRefs)
	assert.Equal(t, RiskLow, item.RiskLevel)
}

func TestChatRecordsExchange(t *testing.T) {
	svc, registry := newTestService(t, &countingSuggester{})
	res := uploadFixture(t, svc)

	answer, err := svc.Chat(context.Background(), res.SessionID, "what else is missing?", "Background")
	require.NoError(t, err)
	assert.Equal(t, "canned answer", answer)

	sess, _ := registry.Get(res.SessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	require.Len(t, sess.chatHistory, 2)
}

func TestCompleteRequiresAcceptedFeedback(t *testing.T) {
	svc, _ := newTestService(t, &countingSuggester{})
	res := uploadFixture(t, svc)

	_, err := svc.Complete(context.Background(), res.SessionID)
	assert.ErrorIs(t, err, ErrNoAcceptedFeedback)
}

func TestCompleteGeneratesReviewedDocument(t *testing.T) {
	svc, _ := newTestService(t, &countingSuggester{})
	res := uploadFixture(t, svc)

	item := FeedbackItem{ID: "f1", Type: TypeCritical, Description: "no CX impact", RiskLevel: RiskHigh}
	require.NoError(t, svc.Accept(res.SessionID, "Background", item))
	require.NoError(t, svc.Accept(res.SessionID, "Root Cause", FeedbackItem{ID: "f2", Type: TypeImportant, Description: "shallow analysis"}))

	out, err := svc.Complete(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, out.CommentsCount)
	assert.True(t, strings.HasPrefix(out.OutputName, "reviewed_writeup_"))
	assert.True(t, strings.HasSuffix(out.OutputName, ".docx"))

	f, err := svc.store.OpenOutput(out.OutputName)
	require.NoError(t, err)
	f.Close()
}

func TestUploadWorksOnMemFs(t *testing.T) {
	store := storage.New(afero.NewMemMapFs(), "uploads", "outputs")
	require.NoError(t, store.Init())
	segmenter := Segmenter{
		StandardSections: config.DefaultStandardSections,
		ExcludedSections: config.DefaultExcludedSections,
		Logger:           zerolog.Nop(),
	}
	svc := NewService(store, &countingSuggester{}, NewRegistry(0), segmenter, zerolog.Nop())

	res := uploadFixture(t, svc)
	assert.Equal(t, []string{"Background", "Root Cause"}, res.SectionNames)

	text, err := svc.SectionText(res.SessionID, "Background")
	require.NoError(t, err)
	assert.Equal(t, "An appeal came in.", text)
}

func TestCompleteFallsBackToAppendix(t *testing.T) {
	svc, _ := newTestService(t, &countingSuggester{})
	res, err := svc.Upload(context.Background(), "writeup.docx", bytes.NewReader(relslessDocx(t)))
	require.NoError(t, err)

	item := FeedbackItem{ID: "f1", Type: TypeCritical, Description: "no CX impact", RiskLevel: RiskHigh}
	require.NoError(t, svc.Accept(res.SessionID, "Background", item))

	out, err := svc.Complete(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.CommentsCount)

	body := readZipPart(t, svc.store.OutputPath(out.OutputName), "word/document.xml")
	require.Contains(t, body, "Review Feedback Summary")
	summary := body[strings.Index(body, "Review Feedback Summary"):]
	assert.Contains(t, summary, "no CX impact")
	assert.Contains(t, summary, "Background")
	assert.Contains(t, summary, "CRITICAL - High Risk")
}

func TestCompleteFailsWhenBothPathsExhausted(t *testing.T) {
	svc, registry := newTestService(t, &countingSuggester{})
	res := uploadFixture(t, svc)
	require.NoError(t, svc.Accept(res.SessionID, "Background",
		FeedbackItem{ID: "f1", Type: TypeCritical, Description: "no CX impact"}))

	sess, ok := registry.Get(res.SessionID)
	require.True(t, ok)
	require.NoError(t, os.Remove(sess.DocumentPath))

	_, err := svc.Complete(context.Background(), res.SessionID)
	assert.ErrorIs(t, err, ErrGenerateFailed)
}

func TestStats(t *testing.T) {
	sg := &countingSuggester{items: []FeedbackItem{
		{Type: TypeCritical, Description: "fraud risk ignored"},
		{Type: TypeSuggestion, Description: "add a table"},
	}}
	svc, _ := newTestService(t, sg)
	res := uploadFixture(t, svc)

	items, err := svc.Analyze(context.Background(), res.SessionID, "Background")
	require.NoError(t, err)
	require.NoError(t, svc.Accept(res.SessionID, "Background", items[0]))

	st, err := svc.Stats(res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalFeedback)
	assert.Equal(t, 1, st.HighRisk)
	assert.Equal(t, 1, st.Accepted)
}
