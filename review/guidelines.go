package review

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	pdf "github.com/dslipak/pdf"
	"github.com/rs/zerolog"

	"github.com/fabfab/review-agent/config"
	"github.com/fabfab/review-agent/docx"
)

// Guidelines carries the flattened text of the reference documents handed to
// suggestion providers for prompt enrichment.
type Guidelines struct {
	Review    string
	Checklist string
}

// LoadGuidelines reads the configured guideline and checklist documents.
// Missing or unreadable files are logged and skipped; review proceeds without
// them.
func LoadGuidelines(cfg config.Config, logger zerolog.Logger) Guidelines {
	var g Guidelines
	if cfg.GuidelinesPath != "" {
		text, err := ReadReferenceDocument(cfg.GuidelinesPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.GuidelinesPath).Msg("guidelines document not loaded")
		} else {
			g.Review = text
		}
	}
	if cfg.ChecklistPath != "" {
		text, err := ReadReferenceDocument(cfg.ChecklistPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.ChecklistPath).Msg("checklist document not loaded")
		} else {
			g.Checklist = text
		}
	}
	return g
}

// ReadReferenceDocument flattens a reference document to plain text. Word
// containers flatten to paragraph plus table-cell text, PDFs to their
// extracted text, anything else is read verbatim.
func ReadReferenceDocument(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		doc, err := docx.Open(path)
		if err != nil {
			return "", err
		}
		return doc.PlainText(), nil
	case ".pdf":
		return readPDF(path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read reference document: %w", err)
		}
		return string(data), nil
	}
}

func readPDF(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
