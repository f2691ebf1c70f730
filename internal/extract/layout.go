package extract

import (
	"sort"
	"strings"
)

const (
	// paragraphGapFactor is the multiple of the usual line gap that reads as a blank line
	paragraphGapFactor = 1.8
	// wordGapFactor is the share of the font size that separates two words on a line
	wordGapFactor = 0.15
	// topMarginRatio is the share of the page height above the first line that marks a title page
	topMarginRatio = 0.25
)

// textRun is a positioned piece of text, usually a single glyph
type textRun struct {
	x, w, size float64
	s          string
}

// textRow is one baseline of a page
type textRow struct {
	y    float64
	runs []textRun
}

// layoutPage turns positioned rows into line-broken text. Rows are read top
// to bottom, a vertical gap well above the usual line spacing becomes a blank
// line, and a page whose first line sits far below the top edge gets three
// leading line breaks. top and bottom bound the page box; pass equal values
// when it is unknown.
func layoutPage(rows []textRow, top, bottom float64) string {
	var kept []textRow
	for _, row := range rows {
		if strings.TrimSpace(rowText(row)) != "" {
			kept = append(kept, row)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].y > kept[j].y })

	lineGap := typicalGap(kept)

	var b strings.Builder
	if height := top - bottom; height > 0 && top-kept[0].y > height*topMarginRatio {
		b.WriteString("\n\n\n")
	}

	for i, row := range kept {
		if i > 0 {
			b.WriteByte('\n')
			if lineGap > 0 && kept[i-1].y-row.y > lineGap*paragraphGapFactor {
				b.WriteByte('\n')
			}
		}
		b.WriteString(strings.TrimSpace(rowText(row)))
	}
	return b.String()
}

// rowText joins the runs of a row left to right, inserting a space where the
// horizontal gap between two runs is wider than a fraction of the font size
func rowText(row textRow) string {
	runs := append([]textRun(nil), row.runs...)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].x < runs[j].x })

	var b strings.Builder
	for i, run := range runs {
		if i > 0 {
			prev := runs[i-1]
			gap := run.x - (prev.x + prev.w)
			size := run.size
			if size <= 0 {
				size = prev.size
			}
			if gap > size*wordGapFactor && !endsWithSpace(b.String()) && !strings.HasPrefix(run.s, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(run.s)
	}
	return b.String()
}

// typicalGap returns the median distance between consecutive rows
func typicalGap(rows []textRow) float64 {
	if len(rows) < 2 {
		return 0
	}
	gaps := make([]float64, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		if g := rows[i-1].y - rows[i].y; g > 0 {
			gaps = append(gaps, g)
		}
	}
	if len(gaps) == 0 {
		return 0
	}
	sort.Float64s(gaps)
	return gaps[len(gaps)/2]
}

func endsWithSpace(s string) bool {
	return strings.HasSuffix(s, " ")
}
