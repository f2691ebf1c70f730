// Package extract turns uploaded documents into per-page plain text.
package extract

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrUnsupportedFormat is returned by the factory for unknown formats
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrNoText is returned when a document yields no text at all, e.g. a scanned PDF
	ErrNoText = errors.New("document contains no extractable text")
)

// Result is the text layer of a document
type Result struct {
	Pages  []string // one entry per source page, blank pages included
	Title  string   // from document metadata, may be empty
	Author string   // from document metadata, may be empty
}

// Extractor defines the interface for text extractors
type Extractor interface {
	// Extract returns the per-page text of the document
	Extract(ctx context.Context, data []byte) (*Result, error)

	// SupportedFormats returns the file formats this extractor supports
	SupportedFormats() []string
}

// Factory creates extractors for different formats
type Factory interface {
	// GetExtractor returns an extractor for the given format
	GetExtractor(format string) (Extractor, error)
}

// normalizePage folds compatibility characters (ligatures, full-width forms)
// with NFKC, unifies line endings and drops control characters other than
// line breaks and tabs.
func normalizePage(text string) string {
	text = strings.ToValidUTF8(text, "�")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = norm.NFKC.String(text)

	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
}

// hasText reports whether any page carries non-whitespace text
func hasText(pages []string) bool {
	for _, page := range pages {
		if strings.TrimSpace(page) != "" {
			return true
		}
	}
	return false
}
