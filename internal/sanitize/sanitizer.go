// Package sanitize strips page numbers and repeated running headers/footers
// from the raw text of PDF pages.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/unalkalkan/pdf2epub/pkg/types"
	"go.uber.org/zap"
)

const (
	// minPagesForDetection is the smallest document that yields a header/footer pattern
	minPagesForDetection = 3
	// edgeLines is how many non-blank lines are inspected at the top and bottom of a page
	edgeLines = 2
)

var (
	leadingNumberRe  = regexp.MustCompile(`^[ \t]*\d+[ \t]*\r?\n`)
	trailingNumberRe = regexp.MustCompile(`\r?\n[ \t]*\d+\s*$`)
	numberLineRe     = regexp.MustCompile(`(?m)^[ \t]*\d+[ \t]*\r?$`)
	dashedNumberRe   = regexp.MustCompile(`(?m)^[ \t]*[-–—][ \t]*\d+[ \t]*[-–—][ \t]*\r?$`)
	pageLabelRe      = regexp.MustCompile(`(?im)^[ \t]*(?:page|pagina|pag\.)[ \t]*\d+(?:[ \t]+(?:of|di)[ \t]+\d+)?[ \t]*\r?$`)
)

// PatternError reports a header/footer candidate that could not be turned into a match pattern
type PatternError struct {
	Position string // "header" or "footer"
	Text     string
	Err      error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid %s pattern %q: %v", e.Position, e.Text, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Sanitizer removes page furniture from extracted pages
type Sanitizer struct {
	logger *zap.Logger
}

// New creates a sanitizer. A nil logger disables logging.
func New(logger *zap.Logger) *Sanitizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sanitizer{logger: logger}
}

// Plan is the per-document sanitation state: the options plus the compiled header/footer pattern
type Plan struct {
	opts    types.Options
	pattern types.HeaderFooterPattern
	header  *regexp.Regexp
	footer  *regexp.Regexp
}

// Pattern returns the header/footer pattern detected for the document
func (p *Plan) Pattern() types.HeaderFooterPattern {
	return p.pattern
}

// Prepare detects the header/footer pattern of a document and compiles it.
// A pattern that fails to compile disables header/footer removal for this
// document only; it is logged and never returned as an error.
func (s *Sanitizer) Prepare(pages []string, opts types.Options) *Plan {
	plan := &Plan{opts: opts}
	if !opts.RemoveHeaders {
		return plan
	}

	pattern, ok := DetectHeaderFooterPatterns(pages)
	if !ok {
		s.logger.Debug("no header/footer pattern", zap.Int("pages", len(pages)))
		return plan
	}

	header, footer, err := Compile(pattern)
	if err != nil {
		s.logger.Warn("skipping header/footer removal", zap.Error(err))
		return plan
	}

	plan.pattern = pattern
	plan.header = header
	plan.footer = footer
	s.logger.Debug("header/footer pattern detected",
		zap.String("header", pattern.Header),
		zap.String("footer", pattern.Footer))
	return plan
}

// Apply sanitizes one page. Pages that end up empty are returned as "".
func (p *Plan) Apply(text string) string {
	changed := false

	if p.header != nil {
		text = p.header.ReplaceAllString(text, "")
		changed = true
	}
	if p.footer != nil {
		text = p.footer.ReplaceAllString(text, "")
		changed = true
	}

	if p.opts.RemovePageNumbers {
		text = RemovePageNumbers(text)
		changed = true
	}

	if !changed {
		return text
	}
	// Leading whitespace is kept: a wide top margin is a chapter heading signal.
	text = strings.TrimRight(text, " \t\r\n")
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return text
}

// Sanitize runs Prepare and Apply over every page. The result has the same
// length and order as the input.
func (s *Sanitizer) Sanitize(pages []string, opts types.Options) []string {
	plan := s.Prepare(pages, opts)
	out := make([]string, len(pages))
	for i, page := range pages {
		out[i] = plan.Apply(page)
	}
	return out
}

// RemovePageNumbers strips page-number lines from a page. The edge rules
// drop a number on the first or last line together with its line break; the
// line rules blank every remaining number-only line.
func RemovePageNumbers(text string) string {
	text = trailingNumberRe.ReplaceAllString(text, "")
	text = leadingNumberRe.ReplaceAllString(text, "")
	text = numberLineRe.ReplaceAllString(text, "")
	text = dashedNumberRe.ReplaceAllString(text, "")
	text = pageLabelRe.ReplaceAllString(text, "")
	return text
}

// Compile turns a detected pattern into regular expressions that match the
// literal header/footer text, whether its words are separated by spaces or
// line breaks. The header expression also consumes the line break after it,
// the footer expression the line break before it.
func Compile(pattern types.HeaderFooterPattern) (header, footer *regexp.Regexp, err error) {
	if pattern.Header != "" {
		header, err = compileLiteral(pattern.Header, "header", "", `[ \t]*(?:\r?\n)?`)
		if err != nil {
			return nil, nil, err
		}
	}
	if pattern.Footer != "" {
		footer, err = compileLiteral(pattern.Footer, "footer", `(?:\r?\n)?[ \t]*`, "")
		if err != nil {
			return nil, nil, err
		}
	}
	return header, footer, nil
}

func compileLiteral(text, position, prefix, suffix string) (*regexp.Regexp, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, &PatternError{Position: position, Text: text, Err: fmt.Errorf("pattern has no words")}
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	re, err := regexp.Compile(prefix + strings.Join(words, `\s+`) + suffix)
	if err != nil {
		return nil, &PatternError{Position: position, Text: text, Err: err}
	}
	return re, nil
}
