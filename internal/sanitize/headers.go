package sanitize

import (
	"strings"

	"github.com/unalkalkan/pdf2epub/pkg/types"
)

// pageEdges holds the first and last non-blank lines of a page, trimmed
type pageEdges struct {
	first []string
	last  []string
}

// DetectHeaderFooterPatterns infers the running header and footer of a
// document from a sample of up to five pages: first, second, middle,
// second-to-last and last. A line is confirmed only when every sampled page
// carries the identical line at the same position; number-only lines are
// left to page-number removal. It reports false when the document is too
// short or nothing repeats.
func DetectHeaderFooterPatterns(pages []string) (types.HeaderFooterPattern, bool) {
	if len(pages) < minPagesForDetection {
		return types.HeaderFooterPattern{}, false
	}

	samples := make([]pageEdges, 0, 5)
	for _, idx := range sampleIndices(len(pages)) {
		samples = append(samples, edgesOf(pages[idx]))
	}

	var headers []string
	for pos := 0; pos < edgeLines; pos++ {
		line, ok := lineAt(samples[0].first, pos)
		if !ok {
			break
		}
		if allMatch(samples, line, func(e pageEdges) []string { return e.first }, pos) && !isNumeric(line) {
			headers = append(headers, line)
		}
	}

	var footers []string
	for pos := 0; pos < edgeLines; pos++ {
		line, ok := lineFromEnd(samples[0].last, pos)
		if !ok {
			break
		}
		if allMatchFromEnd(samples, line, pos) && !isNumeric(line) {
			// Walking up from the bottom: prepend to keep document order.
			footers = append([]string{line}, footers...)
		}
	}

	pattern := types.HeaderFooterPattern{
		Header: strings.Join(headers, " "),
		Footer: strings.Join(footers, " "),
	}
	return pattern, !pattern.IsEmpty()
}

// sampleIndices returns the deduplicated, ordered page sample for n >= 3 pages
func sampleIndices(n int) []int {
	candidates := []int{0, 1, n / 2, n - 2, n - 1}
	seen := make(map[int]bool, len(candidates))
	out := make([]int, 0, len(candidates))
	for _, idx := range candidates {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out
}

func edgesOf(page string) pageEdges {
	var lines []string
	for _, line := range strings.Split(page, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	e := pageEdges{first: lines, last: lines}
	if len(lines) > edgeLines {
		e.first = lines[:edgeLines]
		e.last = lines[len(lines)-edgeLines:]
	}
	return e
}

func lineAt(lines []string, pos int) (string, bool) {
	if pos >= len(lines) {
		return "", false
	}
	return lines[pos], true
}

func lineFromEnd(lines []string, pos int) (string, bool) {
	if pos >= len(lines) {
		return "", false
	}
	return lines[len(lines)-1-pos], true
}

func allMatch(samples []pageEdges, line string, pick func(pageEdges) []string, pos int) bool {
	for _, s := range samples {
		got, ok := lineAt(pick(s), pos)
		if !ok || got != line {
			return false
		}
	}
	return true
}

func allMatchFromEnd(samples []pageEdges, line string, pos int) bool {
	for _, s := range samples {
		got, ok := lineFromEnd(s.last, pos)
		if !ok || got != line {
			return false
		}
	}
	return true
}

// isNumeric reports whether s consists of ASCII digits only
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
