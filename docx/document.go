// Package docx reads and rewrites the OOXML word-processing container: it
// exposes paragraphs with their bold-run ratio, injects native review
// comments into a copy of a document, and appends a summary page when native
// injection is not possible. It is deliberately not a general DOCX library;
// it understands exactly the parts the review workflow touches.
package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/beevik/etree"
)

// ErrUnreadableDocument reports a source that cannot be parsed as a
// word-processing container or is missing required parts.
var ErrUnreadableDocument = errors.New("unreadable document")

const documentPart = "word/document.xml"

// Paragraph is one body-level paragraph in document order. Index is stable
// for the lifetime of the reading session and is what comments anchor to.
type Paragraph struct {
	Index     int
	Text      string
	BoldRuns  int
	TotalRuns int
}

// Emphasized reports whether strictly more than half of the paragraph's runs
// are bold. A paragraph with zero runs is never emphasized.
func (p Paragraph) Emphasized() bool {
	return p.TotalRuns >= 1 && p.BoldRuns*2 > p.TotalRuns
}

// Document is the in-memory view of an opened container.
type Document struct {
	Paragraphs []Paragraph
	Tables     [][][]string
}

// Open parses the container at path.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	return OpenBytes(data)
}

// OpenBytes parses a container already held in memory.
func OpenBytes(data []byte) (*Document, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	var body *etree.Element
	for _, file := range reader.File {
		if file.Name != documentPart {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrUnreadableDocument, documentPart, err)
		}
		tree := etree.NewDocument()
		_, err = tree.ReadFrom(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrUnreadableDocument, documentPart, err)
		}
		root := tree.Root()
		if root == nil {
			return nil, fmt.Errorf("%w: empty %s", ErrUnreadableDocument, documentPart)
		}
		body = findChild(root, "body")
		break
	}
	if body == nil {
		return nil, fmt.Errorf("%w: missing %s body", ErrUnreadableDocument, documentPart)
	}

	doc := &Document{}
	for _, child := range body.ChildElements() {
		switch child.Tag {
		case "p":
			para := parseParagraph(child)
			para.Index = len(doc.Paragraphs)
			doc.Paragraphs = append(doc.Paragraphs, para)
		case "tbl":
			doc.Tables = append(doc.Tables, parseTable(child))
		}
	}
	return doc, nil
}

// PlainText flattens the document for guideline-style reading: every
// paragraph's text followed by every table cell's text, newline-joined.
func (d *Document) PlainText() string {
	parts := make([]string, 0, len(d.Paragraphs))
	for _, para := range d.Paragraphs {
		parts = append(parts, para.Text)
	}
	for _, table := range d.Tables {
		for _, row := range table {
			parts = append(parts, row...)
		}
	}
	return strings.Join(parts, "\n")
}

func parseParagraph(p *etree.Element) Paragraph {
	var para Paragraph
	para.Text = elementText(p)
	for _, run := range findDescendants(p, "r") {
		para.TotalRuns++
		if runIsBold(run) {
			para.BoldRuns++
		}
	}
	return para
}

func parseTable(tbl *etree.Element) [][]string {
	var rows [][]string
	for _, tr := range findDescendants(tbl, "tr") {
		var cells []string
		for _, tc := range tr.ChildElements() {
			if tc.Tag != "tc" {
				continue
			}
			var paraTexts []string
			for _, p := range findDescendants(tc, "p") {
				paraTexts = append(paraTexts, elementText(p))
			}
			cells = append(cells, strings.Join(paraTexts, "\n"))
		}
		rows = append(rows, cells)
	}
	return rows
}

// elementText concatenates the visible text of a paragraph or run subtree:
// w:t text, tabs as \t and line breaks as \n.
func elementText(el *etree.Element) string {
	var b strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, child := range e.ChildElements() {
			switch child.Tag {
			case "t":
				b.WriteString(child.Text())
			case "tab":
				b.WriteString("\t")
			case "br", "cr":
				b.WriteString("\n")
			default:
				walk(child)
			}
		}
	}
	walk(el)
	return b.String()
}

func runIsBold(run *etree.Element) bool {
	rPr := findChild(run, "rPr")
	if rPr == nil {
		return false
	}
	b := findChild(rPr, "b")
	if b == nil {
		return false
	}
	for _, attr := range b.Attr {
		if attr.Key == "val" {
			v := strings.ToLower(attr.Value)
			return v != "false" && v != "0" && v != "none"
		}
	}
	return true
}

func findChild(el *etree.Element, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

func findDescendants(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, child := range e.ChildElements() {
			if child.Tag == tag {
				out = append(out, child)
				continue
			}
			walk(child)
		}
	}
	walk(el)
	return out
}
