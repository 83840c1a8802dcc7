// Package docxtest builds minimal word-processing containers for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Para describes one paragraph of a test document. Text is carried by the
// first run; the remaining runs are empty. The first BoldRuns runs are bold.
type Para struct {
	Text      string
	BoldRuns  int
	TotalRuns int
}

// Bold is a convenience for a fully bold single-run paragraph.
func Bold(text string) Para {
	return Para{Text: text, BoldRuns: 1, TotalRuns: 1}
}

// Plain is a convenience for a non-bold single-run paragraph.
func Plain(text string) Para {
	return Para{Text: text, BoldRuns: 0, TotalRuns: 1}
}

// Doc describes a whole test document.
type Doc struct {
	Paras  []Para
	Tables [][][]string
}

// Build serializes the document into container bytes.
func Build(doc Doc) []byte {
	var body strings.Builder
	for _, p := range doc.Paras {
		body.WriteString("<w:p>")
		for i := 0; i < p.TotalRuns; i++ {
			body.WriteString("<w:r>")
			if i < p.BoldRuns {
				body.WriteString("<w:rPr><w:b/></w:rPr>")
			}
			text := ""
			if i == 0 {
				text = xmlEscape(p.Text)
			}
			fmt.Fprintf(&body, `<w:t xml:space="preserve">%s</w:t>`, text)
			body.WriteString("</w:r>")
		}
		body.WriteString("</w:p>")
	}
	for _, table := range doc.Tables {
		body.WriteString("<w:tbl>")
		for _, row := range table {
			body.WriteString("<w:tr>")
			for _, cell := range row {
				fmt.Fprintf(&body,
					`<w:tc><w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p></w:tc>`,
					xmlEscape(cell))
			}
			body.WriteString("</w:tr>")
		}
		body.WriteString("</w:tbl>")
	}

	documentXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + body.String() +
		`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/></w:sectPr>` +
		`</w:body></w:document>`

	contentTypes := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`

	rootRels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`

	docRels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`</Relationships>`

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, part := range []struct{ name, data string }{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", rootRels},
		{"word/document.xml", documentXML},
		{"word/_rels/document.xml.rels", docRels},
	} {
		w, err := zw.Create(part.name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(part.data)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// WriteFile builds the document and writes it into dir, returning its path.
func WriteFile(t *testing.T, dir, name string, doc Doc) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(doc), 0o644); err != nil {
		t.Fatalf("write test document: %v", err)
	}
	return path
}

func xmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
