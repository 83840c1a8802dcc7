package docx

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// AppendixComment is a comment destined for the fallback summary page, which
// groups by section and renders type/risk labels inline.
type AppendixComment struct {
	Comment
	Section string
	Type    string
	Risk    string
}

// WriteAppendix produces a copy of srcPath with a forced page break and a
// feedback summary region appended: heading, generation timestamp,
// total-count line, then per-section sub-headings with one bulleted line per
// comment. This is the durability fallback when native comment injection
// fails; it must work for any container the reader accepts.
func WriteAppendix(srcPath, outPath string, comments []AppendixComment) error {
	parts, err := readParts(srcPath)
	if err != nil {
		return fmt.Errorf("write appendix: %w", err)
	}

	idx := findPart(parts, documentPart)
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(parts[idx].data); err != nil {
		return fmt.Errorf("write appendix: parse %s: %w", documentPart, err)
	}
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("write appendix: empty %s", documentPart)
	}
	body := findChild(root, "body")
	if body == nil {
		return fmt.Errorf("write appendix: missing body")
	}

	// Section properties must remain the last body child when present.
	insertAt := len(body.ChildElements())
	if sectPr := findChild(body, "sectPr"); sectPr != nil {
		insertAt = sectPr.Index()
	}

	appended := summaryElements(comments, time.Now())
	for i, el := range appended {
		body.InsertChildAt(insertAt+i, el)
	}

	data, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("write appendix: serialize %s: %w", documentPart, err)
	}
	parts[idx].data = data

	if err := writeParts(outPath, parts); err != nil {
		return fmt.Errorf("write appendix: %w", err)
	}
	return nil
}

func summaryElements(comments []AppendixComment, now time.Time) []*etree.Element {
	els := []*etree.Element{
		pageBreakParagraph(),
		styledParagraph("Heading1", run("Review Feedback Summary", false)),
		styledParagraph("", run(fmt.Sprintf("Generated on: %s", now.Format("2006-01-02 15:04")), false)),
		styledParagraph("", run(fmt.Sprintf("Total feedback items: %d", len(comments)), false)),
		styledParagraph("", run("", false)),
	}

	for _, section := range sectionOrder(comments) {
		els = append(els, styledParagraph("Heading2", run(section, false)))
		for _, c := range comments {
			if c.Section != section {
				continue
			}
			lead := fmt.Sprintf("[%s] %s - %s Risk: ", c.Author, strings.ToUpper(c.Type), c.Risk)
			els = append(els, styledParagraph("ListParagraph", run(lead, true), run(c.Text, false)))
		}
	}
	return els
}

// sectionOrder returns section names in first-seen comment order.
func sectionOrder(comments []AppendixComment) []string {
	seen := make(map[string]bool)
	var order []string
	for _, c := range comments {
		if !seen[c.Section] {
			seen[c.Section] = true
			order = append(order, c.Section)
		}
	}
	return order
}

func styledParagraph(style string, runs ...*etree.Element) *etree.Element {
	p := etree.NewElement("w:p")
	if style != "" {
		pPr := p.CreateElement("w:pPr")
		pStyle := pPr.CreateElement("w:pStyle")
		pStyle.CreateAttr("w:val", style)
	}
	for _, r := range runs {
		p.AddChild(r)
	}
	return p
}

func run(text string, bold bool) *etree.Element {
	r := etree.NewElement("w:r")
	if bold {
		rPr := r.CreateElement("w:rPr")
		rPr.CreateElement("w:b")
	}
	t := r.CreateElement("w:t")
	t.CreateAttr("xml:space", "preserve")
	t.SetText(text)
	return r
}

func pageBreakParagraph() *etree.Element {
	p := etree.NewElement("w:p")
	br := p.CreateElement("w:r").CreateElement("w:br")
	br.CreateAttr("w:type", "page")
	return p
}
