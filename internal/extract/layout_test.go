package extract

import "testing"

func glyphs(x, y, size float64, s string) textRow {
	row := textRow{y: y}
	for _, r := range s {
		row.runs = append(row.runs, textRun{x: x, w: size * 0.5, size: size, s: string(r)})
		x += size * 0.5
	}
	return row
}

func TestLayoutPage(t *testing.T) {
	t.Run("Rows top to bottom", func(t *testing.T) {
		rows := []textRow{
			glyphs(72, 706, 12, "second"),
			glyphs(72, 720, 12, "first"),
		}
		if got := layoutPage(rows, 792, 0); got != "first\nsecond" {
			t.Errorf("Unexpected layout %q", got)
		}
	})

	t.Run("Word gaps", func(t *testing.T) {
		row := glyphs(72, 720, 10, "Hello")
		next := glyphs(72+5*5+4, 720, 10, "World")
		row.runs = append(row.runs, next.runs...)
		if got := layoutPage([]textRow{row}, 0, 0); got != "Hello World" {
			t.Errorf("Unexpected layout %q", got)
		}
	})

	t.Run("Paragraph gap becomes blank line", func(t *testing.T) {
		rows := []textRow{
			glyphs(72, 720, 12, "a"),
			glyphs(72, 706, 12, "b"),
			glyphs(72, 692, 12, "c"),
			glyphs(72, 650, 12, "d"),
		}
		if got := layoutPage(rows, 792, 0); got != "a\nb\nc\n\nd" {
			t.Errorf("Unexpected layout %q", got)
		}
	})

	t.Run("Wide top margin", func(t *testing.T) {
		rows := []textRow{glyphs(200, 500, 24, "CHAPTER ONE")}
		if got := layoutPage(rows, 792, 0); got != "\n\n\nCHAPTER ONE" {
			t.Errorf("Unexpected layout %q", got)
		}
	})

	t.Run("Blank rows dropped", func(t *testing.T) {
		rows := []textRow{glyphs(72, 720, 12, "   ")}
		if got := layoutPage(rows, 792, 0); got != "" {
			t.Errorf("Expected empty page, got %q", got)
		}
	})
}
