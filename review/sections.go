package review

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/fabfab/review-agent/docx"
)

// FallbackSectionName owns every non-empty paragraph when no headers are
// detected.
const FallbackSectionName = "Main Content"

// maxHeaderLen bounds header candidates; longer emphasized paragraphs are
// treated as body text.
const maxHeaderLen = 100

// Section is a named contiguous span of the document. ParagraphIndices are
// the ordinals of its member paragraphs, header excluded.
type Section struct {
	Name             string
	Body             string
	ParagraphIndices []int
}

// Sections is an insertion-ordered section map. Committing a name that
// already exists replaces its value but keeps its original position.
type Sections struct {
	order  []string
	byName map[string]Section
}

func newSections() *Sections {
	return &Sections{byName: make(map[string]Section)}
}

func (s *Sections) add(sec Section) {
	if _, ok := s.byName[sec.Name]; !ok {
		s.order = append(s.order, sec.Name)
	}
	s.byName[sec.Name] = sec
}

// Get returns the named section.
func (s *Sections) Get(name string) (Section, bool) {
	sec, ok := s.byName[name]
	return sec, ok
}

// Names returns section names in detection order.
func (s *Sections) Names() []string {
	return append([]string(nil), s.order...)
}

// Len is the number of committed sections.
func (s *Sections) Len() int {
	return len(s.order)
}

// Segmenter partitions a paragraph sequence into named sections using
// formatting and lexical heuristics. It is deliberately heuristic: an
// all-caps short sentence reads as a header and a mixed-case unmarked header
// does not, and both are accepted behavior.
type Segmenter struct {
	// StandardSections confirm a header candidate by case-insensitive
	// substring match regardless of colon or capitalization cues.
	StandardSections []string
	// ExcludedSections drop a committed section by case-insensitive substring
	// match on its name. Its paragraphs are still consumed.
	ExcludedSections []string

	Logger zerolog.Logger
}

// Segment runs the single-pass segmentation over paragraphs in document
// order. Paragraphs before the first header are dropped; if no section
// commits, the whole document becomes the fallback section.
func (sg *Segmenter) Segment(paras []docx.Paragraph) *Sections {
	sections := newSections()

	var (
		open       bool
		name       string
		content    []string
		memberIdxs []int
	)

	commit := func() {
		if !open || len(content) == 0 {
			return
		}
		if sg.excluded(name) {
			sg.Logger.Debug().Str("section", name).Msg("section excluded from review")
			return
		}
		sections.add(Section{
			Name:             name,
			Body:             strings.Join(content, "\n"),
			ParagraphIndices: append([]int(nil), memberIdxs...),
		})
	}

	for _, para := range paras {
		text := strings.TrimSpace(para.Text)

		if sg.isHeader(para, text) {
			commit()
			open = true
			name = strings.TrimRight(text, ":")
			content = nil
			memberIdxs = nil
			continue
		}

		if text != "" && open {
			content = append(content, text)
			memberIdxs = append(memberIdxs, para.Index)
		}
	}
	commit()

	if sections.Len() == 0 {
		sections.add(sg.fallbackSection(paras))
	}
	return sections
}

func (sg *Segmenter) isHeader(para docx.Paragraph, trimmed string) bool {
	if !para.Emphasized() || trimmed == "" || utf8.RuneCountInString(trimmed) >= maxHeaderLen {
		return false
	}

	lower := strings.ToLower(trimmed)
	for _, std := range sg.StandardSections {
		if strings.Contains(lower, strings.ToLower(std)) {
			sg.Logger.Debug().Str("header", trimmed).Str("matched", std).Msg("standard section header")
			return true
		}
	}

	return strings.HasSuffix(trimmed, ":") || isUpper(trimmed)
}

func (sg *Segmenter) excluded(name string) bool {
	lower := strings.ToLower(name)
	for _, excl := range sg.ExcludedSections {
		if strings.Contains(lower, strings.ToLower(excl)) {
			return true
		}
	}
	return false
}

// fallbackSection gathers every paragraph with non-empty trimmed text, raw
// text preserved.
func (sg *Segmenter) fallbackSection(paras []docx.Paragraph) Section {
	var texts []string
	var idxs []int
	for _, para := range paras {
		if strings.TrimSpace(para.Text) != "" {
			texts = append(texts, para.Text)
			idxs = append(idxs, para.Index)
		}
	}
	return Section{
		Name:             FallbackSectionName,
		Body:             strings.Join(texts, "\n"),
		ParagraphIndices: idxs,
	}
}

// isUpper reports whether s contains at least one cased rune and no
// lower-case rune.
func isUpper(s string) bool {
	hasCased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			hasCased = true
		}
	}
	return hasCased
}
