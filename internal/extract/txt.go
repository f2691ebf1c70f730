package extract

import (
	"context"
	"regexp"
	"strings"
)

// pageBreakRe splits plain text without form feeds on runs of three or more blank lines
var pageBreakRe = regexp.MustCompile(`\n[ \t]*\n[ \t]*\n[ \t]*\n+`)

// TXTExtractor extracts pages from plain text files
type TXTExtractor struct{}

// NewTXTExtractor creates a new TXT extractor
func NewTXTExtractor() *TXTExtractor {
	return &TXTExtractor{}
}

// Extract splits the text into pages on form feeds, the page separator
// written by pdftotext and most text exporters. Text without form feeds is
// split on runs of blank lines instead.
func (e *TXTExtractor) Extract(ctx context.Context, data []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw := strings.ToValidUTF8(string(data), "�")
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var parts []string
	if strings.Contains(raw, "\f") {
		parts = strings.Split(raw, "\f")
		// A trailing form feed closes the last page rather than opening a new one.
		if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
			parts = parts[:len(parts)-1]
		}
	} else {
		parts = pageBreakRe.Split(raw, -1)
	}

	pages := make([]string, len(parts))
	for i, part := range parts {
		pages[i] = normalizePage(part)
	}

	if !hasText(pages) {
		return nil, ErrNoText
	}
	return &Result{Pages: pages}, nil
}

// SupportedFormats returns the formats this extractor supports
func (e *TXTExtractor) SupportedFormats() []string {
	return []string{"txt"}
}
