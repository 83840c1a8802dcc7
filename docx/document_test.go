package docx_test

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabfab/review-agent/docx"
	"github.com/fabfab/review-agent/docx/docxtest"
)

func TestOpenBytesReadsParagraphsInOrder(t *testing.T) {
	data := docxtest.Build(docxtest.Doc{Paras: []docxtest.Para{
		docxtest.Bold("Background:"),
		docxtest.Plain("The incident began on a Tuesday."),
		docxtest.Plain("It escalated quickly."),
	}})

	doc, err := docx.OpenBytes(data)
	require.NoError(t, err)
	require.Len(t, doc.Paragraphs, 3)

	assert.Equal(t, 0, doc.Paragraphs[0].Index)
	assert.Equal(t, "Background:", doc.Paragraphs[0].Text)
	assert.Equal(t, 1, doc.Paragraphs[1].Index)
	assert.Equal(t, "The incident began on a Tuesday.", doc.Paragraphs[1].Text)
	assert.Equal(t, 2, doc.Paragraphs[2].Index)
}

func TestEmphasizedRequiresBoldMajority(t *testing.T) {
	cases := []struct {
		name      string
		bold      int
		total     int
		emphasize bool
	}{
		{"zero runs never emphasized", 0, 0, false},
		{"single bold run", 1, 1, true},
		{"exactly half is not a majority", 2, 4, false},
		{"strict majority", 3, 4, true},
		{"no bold runs", 0, 3, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := docx.Paragraph{BoldRuns: tc.bold, TotalRuns: tc.total}
			assert.Equal(t, tc.emphasize, p.Emphasized())
		})
	}
}

func TestOpenBytesParsesBoldRunCounts(t *testing.T) {
	data := docxtest.Build(docxtest.Doc{Paras: []docxtest.Para{
		{Text: "Mostly bold header", BoldRuns: 2, TotalRuns: 3},
	}})

	doc, err := docx.OpenBytes(data)
	require.NoError(t, err)
	require.Len(t, doc.Paragraphs, 1)
	assert.Equal(t, 2, doc.Paragraphs[0].BoldRuns)
	assert.Equal(t, 3, doc.Paragraphs[0].TotalRuns)
	assert.True(t, doc.Paragraphs[0].Emphasized())
}

func TestOpenBytesReadsTables(t *testing.T) {
	data := docxtest.Build(docxtest.Doc{
		Paras:  []docxtest.Para{docxtest.Plain("Intro")},
		Tables: [][][]string{{{"Checkpoint", "Meaning"}, {"#1", "Initial Assessment"}}},
	})

	doc, err := docx.OpenBytes(data)
	require.NoError(t, err)
	require.Len(t, doc.Tables, 1)
	require.Len(t, doc.Tables[0], 2)
	assert.Equal(t, []string{"Checkpoint", "Meaning"}, doc.Tables[0][0])
	assert.Equal(t, []string{"#1", "Initial Assessment"}, doc.Tables[0][1])
}

func TestPlainTextIncludesTableCells(t *testing.T) {
	data := docxtest.Build(docxtest.Doc{
		Paras:  []docxtest.Para{docxtest.Plain("Guideline intro")},
		Tables: [][][]string{{{"cell one", "cell two"}}},
	})

	doc, err := docx.OpenBytes(data)
	require.NoError(t, err)
	assert.Equal(t, "Guideline intro\ncell one\ncell two", doc.PlainText())
}

func TestOpenBytesRejectsGarbage(t *testing.T) {
	_, err := docx.OpenBytes([]byte("this is not a zip archive"))
	require.Error(t, err)
	assert.ErrorIs(t, err, docx.ErrUnreadableDocument)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := docx.Open("does/not/exist.docx")
	require.Error(t, err)
	assert.ErrorIs(t, err, docx.ErrUnreadableDocument)
}

func TestOpenBytesRequiresDocumentPart(t *testing.T) {
	// A valid zip that is not a word-processing container.
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	w, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = docx.OpenBytes(buf.Bytes())
	require.Error(t, err)
	assert.ErrorIs(t, err, docx.ErrUnreadableDocument)
}
