// Package reflow rebuilds continuous prose from line-broken page text.
package reflow

import (
	"regexp"
	"strings"

	"github.com/unalkalkan/pdf2epub/pkg/types"
)

// hyphenBreakRe matches a lowercase letter, a hyphen, whitespace and a
// lowercase fragment, capturing any terminal punctuation right after the fragment.
var hyphenBreakRe = regexp.MustCompile(`(\p{Ll})-\s+(\p{Ll}+)([.!?:]?)`)

// paragraphEnd holds the characters that close a paragraph when they end a line
const paragraphEnd = `.!?:”"»`

// Reconstruct reflows one page of text. It is deterministic and idempotent.
func Reconstruct(text string, mode types.FlowMode) string {
	text = MergeHyphenations(text)

	if mode == types.FlowCollapse {
		text = Collapse(text)
	} else {
		text = Paragraphs(text)
	}

	text = FixQuoteSpacing(text)
	return strings.TrimSpace(text)
}

// MergeHyphenations joins words split by a hyphen at a line wrap. A fragment
// followed directly by . ! ? or : keeps its hyphen.
func MergeHyphenations(text string) string {
	for {
		merged := mergeOnce(text)
		if merged == text {
			return text
		}
		text = merged
	}
}

func mergeOnce(text string) string {
	matches := hyphenBreakRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		if m[7] > m[6] {
			continue
		}
		// Keep through the first letter, resume at the fragment.
		b.WriteString(text[last:m[3]])
		last = m[4]
	}
	b.WriteString(text[last:])
	return b.String()
}

// Paragraphs trims every line, drops blank ones and joins the rest into
// paragraphs separated by a blank line. A paragraph ends after a line whose
// last character is sentence-terminal punctuation or a closing quote.
func Paragraphs(text string) string {
	var paragraphs []string
	var current []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		current = append(current, line)
		if endsParagraph(line) {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = current[:0]
		}
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.Join(current, " "))
	}

	return strings.Join(paragraphs, "\n\n")
}

// Collapse replaces every whitespace run, line breaks included, with one space
func Collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// FixQuoteSpacing removes spaces just inside straight double quotes. Quotes
// pair left to right; an unmatched final quote is left alone.
func FixQuoteSpacing(text string) string {
	if !strings.Contains(text, `"`) {
		return text
	}
	parts := strings.Split(text, `"`)
	for i := 1; i < len(parts)-1; i += 2 {
		parts[i] = strings.Trim(parts[i], " \t")
	}
	return strings.Join(parts, `"`)
}

func endsParagraph(line string) bool {
	for _, r := range paragraphEnd {
		if strings.HasSuffix(line, string(r)) {
			return true
		}
	}
	return false
}
