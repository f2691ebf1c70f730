// Package chapters partitions a sequence of sanitized pages into titled chapters.
package chapters

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/unalkalkan/pdf2epub/pkg/types"
)

const (
	// DefaultLeadingTitle names the chapter holding pages before the first heading
	DefaultLeadingTitle = "Beginning"
	// maxHeadingLength bounds title-case and all-caps headings, in characters
	maxHeadingLength = 60
	// maxTitlePageLines is the line count at or below which a page counts as a title page
	maxTitlePageLines = 3
	// titleCaseRatio is the share of capitalised words a title-case heading needs
	titleCaseRatio = 0.7
)

var (
	romanRe   = regexp.MustCompile(`^[IVXLCDM]+\.?$`)
	keywordRe = regexp.MustCompile(`(?i)^(?:(?:chapter|capitolo|chapitre|kapitel|part|parte)\s+\S+.*|(?:prologue|epilogue|prologo|epilogo)(?:\W.*)?)$`)
	arabicRe  = regexp.MustCompile(`^\d{1,4}\.?(?:\s+\p{Lu}.*)?$`)
)

// headingMatchers are checked in order; the first match wins
var headingMatchers = []func(string) bool{
	romanRe.MatchString,
	keywordRe.MatchString,
	func(line string) bool { return utf8.RuneCountInString(line) < maxHeadingLength && arabicRe.MatchString(line) },
	isTitleCase,
	isAllCaps,
}

// Structure is the result of chapter detection
type Structure struct {
	Chapters        []types.Chapter
	TableOfContents []string
}

// Detector finds chapter boundaries in sanitized pages
type Detector struct {
	LeadingTitle string
}

// NewDetector creates a detector. An empty leading title selects DefaultLeadingTitle.
func NewDetector(leadingTitle string) *Detector {
	if leadingTitle == "" {
		leadingTitle = DefaultLeadingTitle
	}
	return &Detector{LeadingTitle: leadingTitle}
}

// Detect walks the pages in order and starts a new chapter at every
// chapter-start page. A blank page directly after a chapter start is a
// separator: it belongs to the chapter's page range but not to its content.
// Chapter page ranges partition the input; a non-empty input always yields
// at least one chapter.
func (d *Detector) Detect(pages []string) Structure {
	leading := d.LeadingTitle
	if leading == "" {
		leading = DefaultLeadingTitle
	}

	var chapters []types.Chapter
	current := types.Chapter{Title: leading, StartPage: 0}

	finalize := func(endPage int) {
		if len(current.Content) == 0 {
			return
		}
		current.EndPage = endPage
		chapters = append(chapters, current)
	}

	for i := 0; i < len(pages); i++ {
		page := pages[i]

		if title, ok := ChapterStart(page); ok {
			finalize(i - 1)
			if title == "" {
				title = fmt.Sprintf("Chapter %d", len(chapters)+1)
			}
			current = types.Chapter{Title: title, StartPage: i}
			current.Content = append(current.Content, page)
			current.Pages = append(current.Pages, i)

			if i+1 < len(pages) && isBlank(pages[i+1]) {
				i++
			}
			continue
		}

		current.Content = append(current.Content, page)
		current.Pages = append(current.Pages, i)
	}
	finalize(len(pages) - 1)

	toc := make([]string, len(chapters))
	for i, ch := range chapters {
		toc[i] = ch.Title
	}
	return Structure{Chapters: chapters, TableOfContents: toc}
}

// ChapterStart reports whether a page opens a chapter and returns its title.
// The first non-blank line must look like a heading, and the page must also
// be short, or shout the heading in capitals, or start below a wide top margin.
func ChapterStart(page string) (string, bool) {
	lines := nonBlankLines(page)
	if len(lines) == 0 {
		return "", false
	}

	first := lines[0]
	if !IsHeading(first) {
		return "", false
	}

	short := len(lines) <= maxTitlePageLines
	upper := strings.ToUpper(first) == first
	margin := strings.HasPrefix(page, "\n\n\n") || strings.HasPrefix(page, "\r\n\r\n\r\n")
	if !short && !upper && !margin {
		return "", false
	}
	return first, true
}

// IsHeading reports whether a single trimmed line looks like a chapter heading
func IsHeading(line string) bool {
	if line == "" {
		return false
	}
	for _, match := range headingMatchers {
		if match(line) {
			return true
		}
	}
	return false
}

// isTitleCase checks for a short line of letters in which most words are capitalised
func isTitleCase(s string) bool {
	if utf8.RuneCountInString(s) >= maxHeadingLength {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && r != ' ' && r != ',' && r != '\'' && r != '-' {
			return false
		}
	}

	words := strings.Fields(s)
	if len(words) == 0 {
		return false
	}

	titleCaseCount := 0
	for _, word := range words {
		first, _ := utf8.DecodeRuneInString(word)
		if unicode.IsUpper(first) {
			titleCaseCount++
		}
	}

	return float64(titleCaseCount)/float64(len(words)) > titleCaseRatio
}

// isAllCaps checks for a short line with letters and no lowercase ones
func isAllCaps(s string) bool {
	if utf8.RuneCountInString(s) >= maxHeadingLength {
		return false
	}
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

func nonBlankLines(page string) []string {
	var lines []string
	for _, line := range strings.Split(page, "\n") {
		if trimmed := strings.Join(strings.Fields(line), " "); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func isBlank(page string) bool {
	return strings.TrimSpace(page) == ""
}
