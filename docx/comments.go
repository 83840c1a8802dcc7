package docx

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
)

const (
	commentsPart     = "word/comments.xml"
	relsPart         = "word/_rels/document.xml.rels"
	contentTypesPart = "[Content_Types].xml"

	wordNS           = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	commentsRelType  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
	commentsRelID    = "rIdComments"
	commentsMIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"
)

// Comment is one review comment to bake into the output container. Ids are
// assigned 1..N in slice order at injection time.
type Comment struct {
	ParagraphIndex int
	Author         string
	Text           string
}

// InjectComments produces a copy of the container at srcPath with comments
// attached as native word-processor comments, written to outPath. The source
// is never mutated. All scratch state (a per-invocation scratch directory and
// any partially written output) is removed on every exit path; any failure is
// reported as an error and callers are expected to fall back to the appendix
// writer.
func InjectComments(srcPath, outPath string, comments []Comment) (err error) {
	parts, err := readParts(srcPath)
	if err != nil {
		return fmt.Errorf("inject comments: %w", err)
	}

	scratch := filepath.Join(os.TempDir(), "review_scratch_"+uuid.NewString())
	defer func() {
		os.RemoveAll(scratch)
		if err != nil {
			os.Remove(outPath)
		}
	}()

	if err = unpackTo(scratch, parts); err != nil {
		return fmt.Errorf("inject comments: %w", err)
	}

	commentsXML, err := buildCommentsPart(comments, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("inject comments: %w", err)
	}
	if err = os.WriteFile(filepath.Join(scratch, filepath.FromSlash(commentsPart)), commentsXML, 0o644); err != nil {
		return fmt.Errorf("inject comments: write comments part: %w", err)
	}

	if err = patchScratchFile(scratch, relsPart, PatchRelationships); err != nil {
		return fmt.Errorf("inject comments: %w", err)
	}
	if err = patchScratchFile(scratch, contentTypesPart, PatchContentTypes); err != nil {
		return fmt.Errorf("inject comments: %w", err)
	}
	if err = anchorComments(scratch, comments); err != nil {
		return fmt.Errorf("inject comments: %w", err)
	}

	if err = packDir(scratch, outPath); err != nil {
		return fmt.Errorf("inject comments: %w", err)
	}
	return nil
}

func patchScratchFile(scratch, name string, patch func([]byte) ([]byte, error)) error {
	path := filepath.Join(scratch, filepath.FromSlash(name))
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	patched, err := patch(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, patched, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// buildCommentsPart synthesizes the comments part: one record per input
// comment with ids assigned in input order starting at 1.
func buildCommentsPart(comments []Comment, now time.Time) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("w:comments")
	root.CreateAttr("xmlns:w", wordNS)

	for i, c := range comments {
		el := root.CreateElement("w:comment")
		el.CreateAttr("w:id", strconv.Itoa(i+1))
		el.CreateAttr("w:author", c.Author)
		el.CreateAttr("w:date", now.Format("2006-01-02T15:04:05Z"))
		el.CreateAttr("w:initials", initials(c.Author))
		p := el.CreateElement("w:p")
		r := p.CreateElement("w:r")
		t := r.CreateElement("w:t")
		t.CreateAttr("xml:space", "preserve")
		t.SetText(c.Text)
	}

	return doc.WriteToBytes()
}

func initials(author string) string {
	out := make([]rune, 0, 3)
	for _, word := range splitWords(author) {
		for _, r := range word {
			out = append(out, r)
			break
		}
		if len(out) == 3 {
			break
		}
	}
	if len(out) == 0 {
		return "R"
	}
	return string(out)
}

func splitWords(s string) []string {
	var words []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\t' {
			if start >= 0 {
				words = append(words, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, s[start:])
	}
	return words
}

// PatchRelationships appends the comments-part relationship to the document
// relationships part. Idempotent: input already carrying a comments
// relationship is returned byte-identical.
func PatchRelationships(data []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", relsPart, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "Relationships" {
		return nil, fmt.Errorf("parse %s: unexpected root", relsPart)
	}
	for _, rel := range root.ChildElements() {
		if rel.Tag == "Relationship" && rel.SelectAttrValue("Target", "") == "comments.xml" {
			return data, nil
		}
	}

	rel := root.CreateElement("Relationship")
	rel.CreateAttr("Id", commentsRelID)
	rel.CreateAttr("Type", commentsRelType)
	rel.CreateAttr("Target", "comments.xml")
	return doc.WriteToBytes()
}

// PatchContentTypes registers the comments part's media type. Idempotent in
// the same way as PatchRelationships.
func PatchContentTypes(data []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", contentTypesPart, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "Types" {
		return nil, fmt.Errorf("parse %s: unexpected root", contentTypesPart)
	}
	for _, el := range root.ChildElements() {
		if el.Tag == "Override" && el.SelectAttrValue("PartName", "") == "/"+commentsPart {
			return data, nil
		}
	}

	override := root.CreateElement("Override")
	override.CreateAttr("PartName", "/"+commentsPart)
	override.CreateAttr("ContentType", commentsMIMEType)
	return doc.WriteToBytes()
}

// anchorComments wraps each target paragraph with comment range markers.
// Anchoring is best-effort: an out-of-range paragraph index skips the marker
// but the comment record itself stays retrievable by id.
func anchorComments(scratch string, comments []Comment) error {
	path := filepath.Join(scratch, filepath.FromSlash(documentPart))
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return fmt.Errorf("parse %s: %w", documentPart, err)
	}
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("parse %s: empty document", documentPart)
	}
	body := findChild(root, "body")
	if body == nil {
		return fmt.Errorf("parse %s: missing body", documentPart)
	}

	var paras []*etree.Element
	for _, child := range body.ChildElements() {
		if child.Tag == "p" {
			paras = append(paras, child)
		}
	}

	for i, c := range comments {
		if c.ParagraphIndex < 0 || c.ParagraphIndex >= len(paras) {
			continue
		}
		id := strconv.Itoa(i + 1)
		p := paras[c.ParagraphIndex]

		start := etree.NewElement("w:commentRangeStart")
		start.CreateAttr("w:id", id)
		// Paragraph properties must stay first; the range start goes right
		// after them.
		insertAt := 0
		if first := findChild(p, "pPr"); first != nil {
			insertAt = first.Index() + 1
		}
		p.InsertChildAt(insertAt, start)

		end := p.CreateElement("w:commentRangeEnd")
		end.CreateAttr("w:id", id)
		ref := p.CreateElement("w:r").CreateElement("w:commentReference")
		ref.CreateAttr("w:id", id)
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serialize %s: %w", documentPart, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", documentPart, err)
	}
	return nil
}
